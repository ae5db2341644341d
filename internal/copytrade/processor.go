package copytrade

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/internal/model"
	"github.com/ninja0404/sol-trader/internal/repo"
	"github.com/ninja0404/sol-trader/pkg/logger"
	"github.com/ninja0404/sol-trader/pkg/mq/redisstream"
	"github.com/ninja0404/sol-trader/pkg/utils"
)

const consumerName = "copytrade-1"
const consumerGroup = "copytrade-processor"

// ErrAutoFollowNotSupported 按比例自动跟买尚未实现, 必须显式失败
var ErrAutoFollowNotSupported = errors.New("自动跟随买入尚未支持")

// ignoredMints 稳定币和质押凭证不跟单
var ignoredMints = map[string]struct{}{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {}, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {}, // USDT
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  {}, // mSOL
}

// BalanceReader 跟单人持仓查询能力, *chain.Client天然满足
type BalanceReader interface {
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, uint8, error)
}

// EventProducer 事件流写入能力, *redisstream.Producer天然满足
type EventProducer interface {
	Produce(ctx context.Context, stream string, payload []byte) (string, error)
}

// Processor 跟单处理器: 消费观察到的交易, 为每个跟单人合成交易意图。
// 单个跟单人的失败不影响同批次其他人。
type Processor struct {
	configs   repo.CopyTradeRepo
	client    BalanceReader
	estimator SlippageEstimator
	producer  EventProducer
}

func NewProcessor(configs repo.CopyTradeRepo, client BalanceReader, estimator SlippageEstimator, producer *redisstream.Producer) *Processor {
	return &Processor{
		configs:   configs,
		client:    client,
		estimator: estimator,
		producer:  producer,
	}
}

// Start 启动观察交易流的消费者
func (p *Processor) Start() error {
	err := redisstream.SetupNamedConsumer(consumerName, redisstream.ConsumerConfig{
		Streams:  []string{common.StreamTxEvent},
		Group:    consumerGroup,
		Consumer: consumerName,
	})
	if err != nil {
		return errors.Wrap(err, "创建跟单消费者失败")
	}
	if err := redisstream.RegisterStreamHandlerForConsumer(consumerName, common.StreamTxEvent, p.handleTxEvent); err != nil {
		return err
	}
	if err := redisstream.StartNamedConsumer(consumerName); err != nil {
		return errors.Wrap(err, "启动跟单消费者失败")
	}

	logger.Info("✅ 跟单处理器已启动")
	return nil
}

// Stop 停止消费
func (p *Processor) Stop() {
	if err := redisstream.CloseNamedConsumer(consumerName); err != nil {
		logger.Warn("⚠️ 关闭跟单消费者失败", logger.FieldErr(err))
	}
	logger.Info("🛑 跟单处理器已停止")
}

func (p *Processor) handleTxEvent(message []byte) error {
	event, err := common.DecodeTxEvent(message)
	if err != nil {
		logger.Error("❌ 观察交易解码失败", logger.FieldErr(err))
		return nil
	}

	// 稳定币/质押凭证交易整体跳过
	if _, ignored := ignoredMints[event.Mint]; ignored {
		logger.Debug("⏭️ 跳过受保护mint的交易", logger.String("mint", event.Mint))
		return nil
	}

	followers, err := p.configs.GetActiveByTargetWallet(event.Who)
	if err != nil {
		return errors.Wrapf(err, "查询跟单配置失败: %s", event.Who)
	}
	if len(followers) == 0 {
		return nil
	}

	ctx := context.Background()
	for _, cfg := range followers {
		p.processFollower(ctx, cfg, event)
	}
	return nil
}

// processFollower 单个跟单人的处理, 任何失败都被隔离在本跟单人内
func (p *Processor) processFollower(ctx context.Context, cfg *model.CopyTrade, event *common.TxEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("❌ 跟单处理panic",
				logger.String("owner", cfg.Owner),
				logger.Any("panic", r),
				logger.FieldStack(utils.GetStack()))
		}
	}()

	swapEvent, err := p.synthesizeIntent(ctx, cfg, event)
	if err != nil {
		logger.Error("❌ 跟单意图合成失败",
			logger.String("owner", cfg.Owner),
			logger.String("target", cfg.TargetWallet),
			logger.String("mint", event.Mint),
			logger.FieldErr(err))
		return
	}
	if swapEvent == nil {
		// 正常跳过(如跟单人无持仓)
		return
	}

	if err := p.emit(ctx, cfg, event, swapEvent); err != nil {
		logger.Error("❌ 跟单事件发送失败",
			logger.String("owner", cfg.Owner),
			logger.FieldErr(err))
	}
}

// synthesizeIntent 把观察到的交易翻译成跟单人自己的交易意图, 返回nil表示跳过
func (p *Processor) synthesizeIntent(ctx context.Context, cfg *model.CopyTrade, event *common.TxEvent) (*common.SwapEvent, error) {
	slippageBps, dynamic, err := p.resolveSlippage(ctx, cfg, event)
	if err != nil {
		return nil, err
	}

	swapEvent := &common.SwapEvent{
		UserPubkey:      cfg.Owner,
		SlippageBps:     slippageBps,
		DynamicSlippage: dynamic,
		Timestamp:       time.Now().Unix(),
		PriorityFee:     cfg.Priority,
		UseJito:         cfg.AntiSandwich,
		ProgramID:       event.ProgramID,
		By:              common.OriginCopyTrade,
		TxEvent:         event,
	}

	if event.TxDirection == common.DirectionBuy {
		// 买入只支持固定金额, 比例跟买必须显式失败而不是算错
		if !cfg.IsFixedBuy {
			return nil, ErrAutoFollowNotSupported
		}
		swapEvent.SwapMode = common.SwapModeExactIn
		swapEvent.InputMint = common.WSOL.String()
		swapEvent.OutputMint = event.Mint
		swapEvent.UIAmount = cfg.FixedBuyAmount
		swapEvent.Amount = cfg.FixedBuyAmount.
			Mul(decimal.NewFromInt(common.SOLDecimal)).Floor().BigInt().Uint64()
		return swapEvent, nil
	}

	// 卖出: 按被观察钱包的减仓比例作用到跟单人自己的持仓上
	pct, err := sellPercentage(event)
	if err != nil {
		return nil, err
	}

	owner, err := solana.PublicKeyFromBase58(cfg.Owner)
	if err != nil {
		return nil, errors.Wrapf(err, "跟单人钱包地址不合法: %s", cfg.Owner)
	}
	mint, err := solana.PublicKeyFromBase58(event.Mint)
	if err != nil {
		return nil, errors.Wrapf(err, "mint不合法: %s", event.Mint)
	}
	balance, _, err := p.client.TokenBalance(ctx, owner, mint)
	if err != nil {
		return nil, err
	}
	if balance == 0 {
		logger.Debug("⏭️ 跟单人无持仓, 跳过卖出",
			logger.String("owner", cfg.Owner),
			logger.String("mint", event.Mint))
		return nil, nil
	}

	swapEvent.SwapMode = common.SwapModeExactOut
	swapEvent.InputMint = event.Mint
	swapEvent.OutputMint = common.WSOL.String()
	swapEvent.SwapInType = common.SwapInPct
	swapEvent.AmountPct = pct
	swapEvent.UIAmount = pct
	return swapEvent, nil
}

// sellPercentage 减仓比例 = (pre-post)/pre, 清仓交易强制为1
func sellPercentage(event *common.TxEvent) (decimal.Decimal, error) {
	if event.TxType == common.TxTypeClosePosition {
		return decimal.NewFromInt(1), nil
	}
	if event.PreTokenAmount.Sign() <= 0 {
		return decimal.Zero, errors.Errorf("观察交易pre余额不合法: %s", event.PreTokenAmount)
	}
	pct := event.PreTokenAmount.Sub(event.PostTokenAmount).Div(event.PreTokenAmount)
	if pct.Sign() <= 0 || pct.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, errors.Errorf("减仓比例不合法: %s", pct)
	}
	return pct, nil
}

// resolveSlippage 滑点优先级: 防夹 > 自定义(关闭自动时) > 动态估算
func (p *Processor) resolveSlippage(ctx context.Context, cfg *model.CopyTrade, event *common.TxEvent) (bps int, dynamic bool, err error) {
	if cfg.AntiSandwich {
		return cfg.AntiSlippageBps, false, nil
	}
	if !cfg.AutoSlippage {
		return cfg.CustomSlippageBps, false, nil
	}

	mint, err := solana.PublicKeyFromBase58(event.Mint)
	if err != nil {
		return 0, false, errors.Wrapf(err, "mint不合法: %s", event.Mint)
	}
	solAmount := cfg.FixedBuyAmount
	bps, err = p.estimator.Estimate(ctx, mint, solAmount)
	if err != nil {
		return 0, false, err
	}
	return bps, true, nil
}

func (p *Processor) emit(ctx context.Context, cfg *model.CopyTrade, event *common.TxEvent, swapEvent *common.SwapEvent) error {
	payload, err := common.EncodeSwapEvent(swapEvent)
	if err != nil {
		return err
	}
	if _, err := p.producer.Produce(ctx, common.StreamSwapEvent, payload); err != nil {
		return errors.Wrap(err, "发送交易意图失败")
	}

	notify := &common.CopyTradeNotify{
		Owner:        cfg.Owner,
		TargetWallet: cfg.TargetWallet,
		Mint:         event.Mint,
		Direction:    event.TxDirection,
		UIAmount:     swapEvent.UIAmount,
		Signature:    event.Signature,
		Timestamp:    swapEvent.Timestamp,
	}
	notifyPayload, err := common.EncodeCopyTradeNotify(notify)
	if err != nil {
		return err
	}
	if _, err := p.producer.Produce(ctx, common.StreamCopyTradeNotify, notifyPayload); err != nil {
		return errors.Wrap(err, "发送跟单通知失败")
	}

	logger.Info("👥 跟单意图已生成",
		logger.String("owner", cfg.Owner),
		logger.String("target", cfg.TargetWallet),
		logger.String("mint", event.Mint),
		logger.String("direction", string(event.TxDirection)))
	return nil
}
