package sender

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

// DefaultSender 直连RPC节点提交, 跳过preflight
type DefaultSender struct {
	client *chain.Client
}

func NewDefaultSender(client *chain.Client) *DefaultSender {
	return &DefaultSender{client: client}
}

func (s *DefaultSender) Tag() string { return TagDefault }

func (s *DefaultSender) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	logger.Info("📤 交易已提交RPC节点", logger.String("signature", sig.String()))
	return sig, nil
}

func (s *DefaultSender) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (bool, error) {
	return s.client.SimulateTransaction(ctx, tx)
}
