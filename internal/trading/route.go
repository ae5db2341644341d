package trading

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

// TradingRoute 交易路由, 决定使用哪个场所的builder
type TradingRoute string

const (
	RoutePump      TradingRoute = "pump"
	RouteRaydiumV4 TradingRoute = "raydium_v4"
	RouteDex       TradingRoute = "dex"
)

// ErrNoRouteFound 无法为该意图确定任何路由, 永久性失败
var ErrNoRouteFound = errors.New("未找到可用的交易路由")

// CurveProber bonding curve探测能力, *chain.Client天然满足
type CurveProber interface {
	FetchBondingCurve(ctx context.Context, mint solana.PublicKey) (*chain.BondingCurveAccount, solana.PublicKey, solana.PublicKey, error)
}

// PoolLookup 池子索引查询能力, *chain.PoolStore天然满足
type PoolLookup interface {
	PreferredPool(ctx context.Context, mint solana.PublicKey) (*chain.RaydiumPoolKeys, error)
}

// Selector 路由选择器。
// 优先级: program_id提示 > bonding curve探测 > 池子缓存 > 聚合器兜底
type Selector struct {
	client CurveProber
	pools  PoolLookup
}

func NewSelector(client CurveProber, pools PoolLookup) *Selector {
	return &Selector{client: client, pools: pools}
}

func (s *Selector) SelectRoute(ctx context.Context, event *common.SwapEvent) (TradingRoute, error) {
	mintStr := event.TokenMint()
	if mintStr == "" {
		return "", errors.Wrap(ErrNoRouteFound, "意图缺少token mint")
	}
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return "", errors.Wrapf(ErrNoRouteFound, "mint不合法: %s", mintStr)
	}

	// 观察到的venue程序提示直接映射, 免去链上探测
	if route, ok := s.routeFromHint(event.ProgramID); ok {
		logger.Debug("🧭 按程序提示选路",
			logger.String("mint", mintStr),
			logger.String("route", string(route)))
		return route, nil
	}

	// 探测bonding curve: 存在且未毕业走内盘
	curve, _, _, err := s.client.FetchBondingCurve(ctx, mint)
	if err == nil && !curve.Complete {
		return RoutePump, nil
	}
	if err != nil && !errors.Is(err, chain.ErrCurveNotFound) {
		return "", err
	}

	// 已毕业或非pump代币: 有缓存池子走Raydium, 否则交给聚合器
	if _, err := s.pools.PreferredPool(ctx, mint); err == nil {
		return RouteRaydiumV4, nil
	} else if !errors.Is(err, chain.ErrPoolNotFound) {
		return "", err
	}

	return RouteDex, nil
}

func (s *Selector) routeFromHint(programID string) (TradingRoute, bool) {
	switch programID {
	case common.PumpFunProgram.String():
		return RoutePump, true
	case common.RaydiumAMMV4Program.String():
		return RouteRaydiumV4, true
	default:
		return "", false
	}
}
