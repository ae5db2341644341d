package settlement

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/internal/model"
	"github.com/ninja0404/sol-trader/internal/repo"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

const (
	// 确认轮询: 1秒一次, 最多60次, 超出视为EXPIRED
	defaultPollInterval = time.Second
	defaultMaxAttempts  = 60
)

// ChainReader 结算所需的链上读取能力, *chain.Client天然满足
type ChainReader interface {
	SignatureStatus(ctx context.Context, sig solana.Signature) (finalized bool, success bool, err error)
	Transaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)
}

// Processor 对已提交的交易做结算: 轮询链上终态, 分析余额变化, 落库一条记录。
// 每次Process调用恰好产生一条记录, 记录创建后不再修改。
type Processor struct {
	client   ChainReader
	records  repo.SwapRecordRepo
	analyzer *Analyzer

	pollInterval time.Duration
	maxAttempts  int
}

func NewProcessor(client ChainReader, records repo.SwapRecordRepo) *Processor {
	return &Processor{
		client:       client,
		records:      records,
		analyzer:     NewAnalyzer(),
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
	}
}

// Validate 轮询签名直到出现链上定论或预算耗尽。
// 单次查询失败不算负向结果, 只消耗预算内的一次尝试。
// 超时返回EXPIRED: 交易仍可能上链, 调用方不得当作确定失败。
func (p *Processor) Validate(ctx context.Context, sig solana.Signature) (model.TransactionStatus, error) {
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		finalized, success, err := p.client.SignatureStatus(ctx, sig)
		if err != nil {
			logger.Warn("⚠️ 查询交易状态失败, 继续轮询",
				logger.String("signature", sig.String()),
				logger.Int("attempt", attempt+1),
				logger.FieldErr(err))
		} else if finalized {
			if success {
				return model.StatusSuccess, nil
			}
			return model.StatusFailed, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}

	logger.Warn("⏰ 确认窗口耗尽, 交易状态未定",
		logger.String("signature", sig.String()))
	return model.StatusExpired, nil
}

// Process 为一次提交尝试生成结算记录。
// sig为零值表示从未提交成功, 落一条无状态的审计记录。
func (p *Processor) Process(ctx context.Context, sig solana.Signature, event *common.SwapEvent) (*model.SwapRecord, error) {
	record := &model.SwapRecord{
		UserPubkey:  event.UserPubkey,
		SwapMode:    string(event.SwapMode),
		InputMint:   event.InputMint,
		OutputMint:  event.OutputMint,
		InputAmount: event.Amount,
		ProgramID:   event.ProgramID,
		Timestamp:   event.Timestamp,
	}

	if sig.IsZero() {
		if err := p.records.Create(record); err != nil {
			return nil, errors.Wrap(err, "保存未提交记录失败")
		}
		logger.Info("📝 未提交交易已记录", logger.String("user", event.UserPubkey))
		return record, nil
	}

	record.Signature = sig.String()

	status, err := p.Validate(ctx, sig)
	if err != nil {
		return nil, err
	}
	record.Status = status

	if status == model.StatusSuccess {
		if err := p.fillAnalysis(ctx, sig, event, record); err != nil {
			// 分析失败不阻塞落库, 状态本身仍然可信
			logger.Error("❌ 结算分析失败",
				logger.String("signature", sig.String()),
				logger.FieldErr(err))
		}
	}

	if err := p.records.Create(record); err != nil {
		return nil, errors.Wrap(err, "保存结算记录失败")
	}

	logger.Info("✅ 结算完成",
		logger.String("signature", sig.String()),
		logger.String("status", string(status)),
		logger.Int64("sol_change", record.SolChange))
	return record, nil
}

func (p *Processor) fillAnalysis(ctx context.Context, sig solana.Signature, event *common.SwapEvent, record *model.SwapRecord) error {
	result, err := p.client.Transaction(ctx, sig)
	if err != nil {
		return err
	}

	user, err := solana.PublicKeyFromBase58(event.UserPubkey)
	if err != nil {
		return errors.Wrapf(err, "user_pubkey不合法: %s", event.UserPubkey)
	}
	mint, err := solana.PublicKeyFromBase58(event.TokenMint())
	if err != nil {
		return errors.Wrapf(err, "mint不合法: %s", event.TokenMint())
	}

	analysis, err := p.analyzer.Analyze(result, user, mint)
	if err != nil {
		return err
	}

	record.Fee = analysis.Fee
	record.Slot = analysis.Slot
	record.SolChange = analysis.SolChange
	record.SwapSolChange = analysis.SwapSolChange
	record.OtherSolChange = analysis.OtherSolChange

	// 成交的token一侧数量用链上实际变化回填
	tokenAmount := analysis.TokenChange.Abs()
	if event.Direction() == common.DirectionBuy {
		record.OutputAmount = tokenAmount.BigInt().Uint64()
		record.OutputTokenDecimals = int32(analysis.TokenDecimals)
	} else {
		record.InputAmount = tokenAmount.BigInt().Uint64()
		record.InputTokenDecimals = int32(analysis.TokenDecimals)
	}
	return nil
}
