package sender

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// sender标签, 与builder标签配对
const (
	TagDefault = "default"
	TagJito    = "jito"
	TagGMGN    = "gmgn"
)

// ErrNotSubmitted sender明确拒绝提交(非异常), 调用方据此区分"未提交"和"提交失败"
var ErrNotSubmitted = errors.New("交易未提交")

// TransactionSender 已签名交易的提交通道
type TransactionSender interface {
	Tag() string

	// SendTransaction 提交交易并返回签名
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// SimulateTransaction 模拟执行, 返回链上是否会成功
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (bool, error)
}
