package copytrade

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/internal/common"
)

// 动态滑点的默认边界
const (
	defaultMinSlippageBps = 100  // 1%
	defaultMaxSlippageBps = 2500 // 25%
)

// SlippageEstimator 根据交易规模估算合理滑点
type SlippageEstimator interface {
	Estimate(ctx context.Context, mint solana.PublicKey, solAmount decimal.Decimal) (int, error)
}

// impactEstimator 用池子储备估算价格冲击: 交易量占SOL侧储备的比例
// 折算成bps后留一倍余量, 再压到[min,max]区间内。
// 查不到池子储备时退回区间下限。
type impactEstimator struct {
	client *chain.Client
	pools  *chain.PoolStore

	minBps int
	maxBps int
}

func NewSlippageEstimator(client *chain.Client, pools *chain.PoolStore) SlippageEstimator {
	return &impactEstimator{
		client: client,
		pools:  pools,
		minBps: defaultMinSlippageBps,
		maxBps: defaultMaxSlippageBps,
	}
}

func (e *impactEstimator) Estimate(ctx context.Context, mint solana.PublicKey, solAmount decimal.Decimal) (int, error) {
	solReserve, err := e.solReserve(ctx, mint)
	if err != nil || solReserve == 0 {
		return e.minBps, nil
	}

	lamports := solAmount.Mul(decimal.NewFromInt(common.SOLDecimal))
	impact := lamports.Div(decimal.NewFromUint64(solReserve))
	bps := int(impact.Mul(decimal.NewFromInt(10000 * 2)).IntPart())

	if bps < e.minBps {
		return e.minBps, nil
	}
	if bps > e.maxBps {
		return e.maxBps, nil
	}
	return bps, nil
}

func (e *impactEstimator) solReserve(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	// 内盘用curve的虚拟SOL储备
	curve, _, _, err := e.client.FetchBondingCurve(ctx, mint)
	if err == nil && !curve.Complete {
		return curve.VirtualSolReserves, nil
	}

	keys, err := e.pools.PreferredPool(ctx, mint)
	if err != nil {
		return 0, err
	}
	reserves, err := e.pools.Reserves(ctx, keys)
	if err != nil {
		return 0, err
	}
	if keys.BaseIsToken(common.WSOL) {
		return reserves.Quote, nil
	}
	return reserves.Base, nil
}
