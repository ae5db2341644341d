package builder

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/internal/common"
)

// 路由标签, builder和sender按标签配对
const (
	TagPump    = "pump"
	TagRaydium = "raydium_v4"
	TagJupiter = "jupiter"
	TagGMGN    = "gmgn"
)

var (
	// 场所缺失, 永久性失败不重试
	ErrPoolNotFound  = errors.New("代币没有可用的流动性池")
	ErrCurveNotFound = errors.New("代币没有有效的bonding curve")

	// 经济性校验失败, 在上链前拒绝
	ErrInvalidAmount       = errors.New("交易数量不合法")
	ErrInsufficientBalance = errors.New("余额不足")
)

// SwapParams 一次swap交易构建所需的全部输入
type SwapParams struct {
	Payer       solana.PrivateKey
	Token       solana.PublicKey
	UIAmount    decimal.Decimal // buy时为SOL数量, sell时为百分比或代币数量
	Direction   common.SwapDirection
	SlippageBps int
	InType      common.SwapInType
	PriorityFee decimal.Decimal // SOL
	UseJito     bool
}

// TransactionBuilder 单一场所的交易构建器
type TransactionBuilder interface {
	// Tag 返回路由标签, 供sender配对
	Tag() string

	// BuildSwapTransaction 根据场所实时状态构建并签名交易
	BuildSwapTransaction(ctx context.Context, params *SwapParams) (*solana.Transaction, error)
}

func (p *SwapParams) validate() error {
	if p.SlippageBps < 0 || p.SlippageBps > 10000 {
		return errors.Wrapf(ErrInvalidAmount, "滑点超出范围: %d", p.SlippageBps)
	}
	if p.UIAmount.Sign() <= 0 {
		return errors.Wrapf(ErrInvalidAmount, "数量必须为正: %s", p.UIAmount)
	}
	if p.Direction == common.DirectionSell && p.InType == common.SwapInPct &&
		p.UIAmount.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Wrapf(ErrInvalidAmount, "卖出百分比超出范围: %s", p.UIAmount)
	}
	return nil
}
