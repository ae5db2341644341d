package trading

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/internal/trading/builder"
	"github.com/ninja0404/sol-trader/internal/trading/sender"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

// Swapper 绑定一个builder和一个sender, 端到端执行一次swap。
// 返回零值签名且无错误仅发生在sender明确报告未提交时。
type Swapper struct {
	builder builder.TransactionBuilder
	sender  sender.TransactionSender
}

func NewSwapper(b builder.TransactionBuilder, s sender.TransactionSender) *Swapper {
	return &Swapper{builder: b, sender: s}
}

func (s *Swapper) Swap(ctx context.Context, params *builder.SwapParams) (solana.Signature, error) {
	tx, err := s.builder.BuildSwapTransaction(ctx, params)
	if err != nil {
		return solana.Signature{}, err
	}
	return s.Send(ctx, tx)
}

// Send 提交已构建的交易, 供调用方在外部完成构建时复用
func (s *Swapper) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.sender.SendTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, sender.ErrNotSubmitted) {
			logger.Warn("⚠️ sender报告未提交",
				logger.String("builder", s.builder.Tag()),
				logger.String("sender", s.sender.Tag()))
			return solana.Signature{}, nil
		}
		return solana.Signature{}, err
	}
	return sig, nil
}
