package trading

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/internal/trading/builder"
	"github.com/ninja0404/sol-trader/internal/trading/sender"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

// Service 按路由把builder和sender配对并执行swap。
// 配对只看标签: GMGN构建的交易强制走GMGN中继, 其余按jito偏好二选一。
type Service struct {
	selector *Selector
	payer    solana.PrivateKey

	pump    builder.TransactionBuilder
	raydium builder.TransactionBuilder
	dex     *builder.AggregateBuilder

	defaultSender sender.TransactionSender
	jitoSender    sender.TransactionSender
	gmgnSender    sender.TransactionSender
}

type ServiceOptions struct {
	Selector *Selector
	Payer    solana.PrivateKey

	Pump    builder.TransactionBuilder
	Raydium builder.TransactionBuilder
	Dex     *builder.AggregateBuilder

	DefaultSender sender.TransactionSender
	JitoSender    sender.TransactionSender
	GMGNSender    sender.TransactionSender
}

func NewService(opts *ServiceOptions) *Service {
	return &Service{
		selector:      opts.Selector,
		payer:         opts.Payer,
		pump:          opts.Pump,
		raydium:       opts.Raydium,
		dex:           opts.Dex,
		defaultSender: opts.DefaultSender,
		jitoSender:    opts.JitoSender,
		gmgnSender:    opts.GMGNSender,
	}
}

// ExecuteSwap 选路 → 构建 → 提交。
// 返回零值签名且无错误表示sender明确未提交。
func (s *Service) ExecuteSwap(ctx context.Context, event *common.SwapEvent) (solana.Signature, error) {
	params, err := s.paramsFromEvent(event)
	if err != nil {
		return solana.Signature{}, err
	}

	route, err := s.selector.SelectRoute(ctx, event)
	if err != nil {
		return solana.Signature{}, err
	}

	logger.Info("🚀 开始执行swap",
		logger.String("user", event.UserPubkey),
		logger.String("mint", event.TokenMint()),
		logger.String("route", string(route)),
		logger.String("direction", string(params.Direction)))

	switch route {
	case RoutePump:
		return NewSwapper(s.pump, s.pickSender(event.UseJito)).Swap(ctx, params)
	case RouteRaydiumV4:
		return NewSwapper(s.raydium, s.pickSender(event.UseJito)).Swap(ctx, params)
	case RouteDex:
		return s.executeDexSwap(ctx, event, params)
	default:
		return solana.Signature{}, errors.Wrapf(ErrNoRouteFound, "未知路由: %s", route)
	}
}

// executeDexSwap 聚合器路由竞速构建, sender按获胜成员决定
func (s *Service) executeDexSwap(ctx context.Context, event *common.SwapEvent, params *builder.SwapParams) (solana.Signature, error) {
	result, err := s.dex.Race(ctx, params)
	if err != nil {
		return solana.Signature{}, err
	}

	// GMGN路由的交易必须走它自己的中继, 覆盖调用方的jito偏好
	snd := s.pickSender(event.UseJito)
	if result.Tag == builder.TagGMGN {
		snd = s.gmgnSender
	}
	return NewSwapper(s.dex, snd).Send(ctx, result.Tx)
}

func (s *Service) pickSender(useJito bool) sender.TransactionSender {
	if useJito {
		return s.jitoSender
	}
	return s.defaultSender
}

func (s *Service) paramsFromEvent(event *common.SwapEvent) (*builder.SwapParams, error) {
	if err := event.Validate(); err != nil {
		return nil, errors.Wrap(builder.ErrInvalidAmount, err.Error())
	}
	mint, err := solana.PublicKeyFromBase58(event.TokenMint())
	if err != nil {
		return nil, errors.Wrapf(builder.ErrInvalidAmount, "mint不合法: %s", event.TokenMint())
	}

	params := &builder.SwapParams{
		Payer:       s.payer,
		Token:       mint,
		Direction:   event.Direction(),
		SlippageBps: event.SlippageBps,
		InType:      event.SwapInType,
		PriorityFee: event.PriorityFee,
		UseJito:     event.UseJito,
	}
	if params.Direction == common.DirectionSell && event.SwapInType == common.SwapInPct {
		params.UIAmount = event.AmountPct
	} else {
		params.UIAmount = event.UIAmount
	}
	return params, nil
}
