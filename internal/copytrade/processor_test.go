package copytrade

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/internal/model"
)

type fakeConfigRepo struct {
	configs []*model.CopyTrade
}

func (f *fakeConfigRepo) GetActiveByTargetWallet(string) ([]*model.CopyTrade, error) {
	return f.configs, nil
}

type fakeBalanceReader struct {
	balance uint64
}

func (f *fakeBalanceReader) TokenBalance(context.Context, solana.PublicKey, solana.PublicKey) (uint64, uint8, error) {
	return f.balance, 6, nil
}

type fakeEstimator struct {
	bps int
}

func (f *fakeEstimator) Estimate(context.Context, solana.PublicKey, decimal.Decimal) (int, error) {
	return f.bps, nil
}

type fakeProducer struct {
	produced map[string][][]byte
}

func (f *fakeProducer) Produce(_ context.Context, stream string, payload []byte) (string, error) {
	if f.produced == nil {
		f.produced = make(map[string][][]byte)
	}
	f.produced[stream] = append(f.produced[stream], payload)
	return "1-0", nil
}

func newTestProcessor(configs []*model.CopyTrade, balance uint64, dynamicBps int) (*Processor, *fakeProducer) {
	producer := &fakeProducer{}
	p := &Processor{
		configs:   &fakeConfigRepo{configs: configs},
		client:    &fakeBalanceReader{balance: balance},
		estimator: &fakeEstimator{bps: dynamicBps},
		producer:  producer,
	}
	return p, producer
}

func newOwner(t *testing.T) string {
	t.Helper()
	return solana.NewWallet().PublicKey().String()
}

func buyEvent(mint string) *common.TxEvent {
	return &common.TxEvent{
		Signature:   "5sig",
		Mint:        mint,
		Who:         "target-wallet",
		TxType:      common.TxTypeOpenPosition,
		TxDirection: common.DirectionBuy,
		Timestamp:   time.Now().Unix(),
	}
}

func sellEvent(mint string, pre, post int64, txType common.TxType) *common.TxEvent {
	return &common.TxEvent{
		Signature:       "5sig",
		Mint:            mint,
		Who:             "target-wallet",
		TxType:          txType,
		TxDirection:     common.DirectionSell,
		Timestamp:       time.Now().Unix(),
		PreTokenAmount:  decimal.NewFromInt(pre),
		PostTokenAmount: decimal.NewFromInt(post),
	}
}

func encodeTx(t *testing.T, event *common.TxEvent) []byte {
	t.Helper()
	payload, err := common.EncodeTxEvent(event)
	require.NoError(t, err)
	return payload
}

func TestIgnoredMintsSkipEntireEvent(t *testing.T) {
	usdc := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	cfg := &model.CopyTrade{
		Owner: newOwner(t), TargetWallet: "target-wallet",
		IsFixedBuy: true, FixedBuyAmount: decimal.NewFromInt(1), Active: true,
	}
	p, producer := newTestProcessor([]*model.CopyTrade{cfg}, 0, 0)

	err := p.handleTxEvent(encodeTx(t, buyEvent(usdc)))
	require.NoError(t, err)
	assert.Empty(t, producer.produced)
}

func TestFixedBuyProducesIntentAndNotify(t *testing.T) {
	mint := newOwner(t)
	owner := newOwner(t)
	cfg := &model.CopyTrade{
		Owner: owner, TargetWallet: "target-wallet",
		IsFixedBuy:        true,
		FixedBuyAmount:    decimal.RequireFromString("0.5"),
		AutoSlippage:      false,
		CustomSlippageBps: 300,
		Priority:          decimal.RequireFromString("0.001"),
		Active:            true,
	}
	p, producer := newTestProcessor([]*model.CopyTrade{cfg}, 0, 0)

	err := p.handleTxEvent(encodeTx(t, buyEvent(mint)))
	require.NoError(t, err)

	intents := producer.produced[common.StreamSwapEvent]
	require.Len(t, intents, 1)
	event, err := common.DecodeSwapEvent(intents[0])
	require.NoError(t, err)

	assert.Equal(t, owner, event.UserPubkey)
	assert.Equal(t, common.SwapModeExactIn, event.SwapMode)
	assert.Equal(t, common.WSOL.String(), event.InputMint)
	assert.Equal(t, mint, event.OutputMint)
	assert.Equal(t, uint64(500_000_000), event.Amount) // 0.5 SOL
	assert.Equal(t, 300, event.SlippageBps)
	assert.Equal(t, common.OriginCopyTrade, event.By)
	require.NotNil(t, event.TxEvent)
	assert.Equal(t, "5sig", event.TxEvent.Signature)

	notifies := producer.produced[common.StreamCopyTradeNotify]
	require.Len(t, notifies, 1)
	notify, err := common.DecodeCopyTradeNotify(notifies[0])
	require.NoError(t, err)
	assert.Equal(t, owner, notify.Owner)
	assert.Equal(t, common.DirectionBuy, notify.Direction)
}

func TestAutoFollowBuyFailsLoudly(t *testing.T) {
	cfg := &model.CopyTrade{
		Owner: newOwner(t), TargetWallet: "target-wallet",
		IsFixedBuy: false, AutoFollow: true, Active: true,
	}
	p, producer := newTestProcessor([]*model.CopyTrade{cfg}, 0, 0)

	// 比例跟买在合成阶段显式失败, 不产出任何事件
	_, err := p.synthesizeIntent(context.Background(), cfg, buyEvent(newOwner(t)))
	assert.ErrorIs(t, err, ErrAutoFollowNotSupported)

	require.NoError(t, p.handleTxEvent(encodeTx(t, buyEvent(newOwner(t)))))
	assert.Empty(t, producer.produced)
}

func TestSellMirrorsObservedPercentage(t *testing.T) {
	mint := newOwner(t)
	cfg := &model.CopyTrade{
		Owner: newOwner(t), TargetWallet: "target-wallet",
		AutoSlippage: false, CustomSlippageBps: 200, Active: true,
	}
	p, producer := newTestProcessor([]*model.CopyTrade{cfg}, 1_000_000, 0)

	// 目标钱包从1000减到400, 减仓60%
	err := p.handleTxEvent(encodeTx(t, sellEvent(mint, 1000, 400, common.TxTypeReducePosition)))
	require.NoError(t, err)

	intents := producer.produced[common.StreamSwapEvent]
	require.Len(t, intents, 1)
	event, err := common.DecodeSwapEvent(intents[0])
	require.NoError(t, err)

	assert.Equal(t, common.SwapModeExactOut, event.SwapMode)
	assert.Equal(t, mint, event.InputMint)
	assert.Equal(t, common.WSOL.String(), event.OutputMint)
	assert.Equal(t, common.SwapInPct, event.SwapInType)
	assert.True(t, event.AmountPct.Equal(decimal.RequireFromString("0.6")),
		"pct=%s", event.AmountPct)
}

func TestClosePositionForcesFullSell(t *testing.T) {
	cfg := &model.CopyTrade{
		Owner: newOwner(t), TargetWallet: "target-wallet",
		AutoSlippage: false, CustomSlippageBps: 200, Active: true,
	}
	p, producer := newTestProcessor([]*model.CopyTrade{cfg}, 1_000_000, 0)

	// 清仓交易: 即使pre/post比例算出来不是1, 也强制全卖
	err := p.handleTxEvent(encodeTx(t, sellEvent(newOwner(t), 1000, 10, common.TxTypeClosePosition)))
	require.NoError(t, err)

	intents := producer.produced[common.StreamSwapEvent]
	require.Len(t, intents, 1)
	event, err := common.DecodeSwapEvent(intents[0])
	require.NoError(t, err)
	assert.True(t, event.AmountPct.Equal(decimal.NewFromInt(1)))
}

func TestSellSkippedWhenFollowerHoldsNothing(t *testing.T) {
	cfg := &model.CopyTrade{
		Owner: newOwner(t), TargetWallet: "target-wallet",
		AutoSlippage: false, CustomSlippageBps: 200, Active: true,
	}
	p, producer := newTestProcessor([]*model.CopyTrade{cfg}, 0, 0)

	err := p.handleTxEvent(encodeTx(t, sellEvent(newOwner(t), 1000, 0, common.TxTypeClosePosition)))
	require.NoError(t, err)
	// 无持仓是正常跳过, 不产出任何事件
	assert.Empty(t, producer.produced)
}

func TestFollowerFailureIsIsolated(t *testing.T) {
	mint := newOwner(t)
	broken := &model.CopyTrade{
		Owner: "not-a-valid-pubkey", TargetWallet: "target-wallet",
		AutoSlippage: false, CustomSlippageBps: 200, Active: true,
	}
	healthy := &model.CopyTrade{
		Owner: newOwner(t), TargetWallet: "target-wallet",
		AutoSlippage: false, CustomSlippageBps: 200, Active: true,
	}
	p, producer := newTestProcessor([]*model.CopyTrade{broken, healthy}, 1_000_000, 0)

	err := p.handleTxEvent(encodeTx(t, sellEvent(mint, 1000, 0, common.TxTypeClosePosition)))
	require.NoError(t, err)

	// 坏配置失败被隔离, 正常跟单人照常产出
	assert.Len(t, producer.produced[common.StreamSwapEvent], 1)
}

func TestSellPercentage(t *testing.T) {
	pct, err := sellPercentage(sellEvent("m", 1000, 250, common.TxTypeReducePosition))
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.RequireFromString("0.75")))

	pct, err = sellPercentage(sellEvent("m", 1000, 999, common.TxTypeClosePosition))
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.NewFromInt(1)))

	_, err = sellPercentage(sellEvent("m", 0, 0, common.TxTypeReducePosition))
	assert.Error(t, err)

	// post > pre 不是减仓, 拒绝
	_, err = sellPercentage(sellEvent("m", 100, 200, common.TxTypeReducePosition))
	assert.Error(t, err)
}

func TestResolveSlippagePrecedence(t *testing.T) {
	p, _ := newTestProcessor(nil, 0, 777)
	event := buyEvent(newOwner(t))
	ctx := context.Background()

	// 防夹优先于一切
	bps, dynamic, err := p.resolveSlippage(ctx, &model.CopyTrade{
		AntiSandwich: true, AntiSlippageBps: 5000,
		AutoSlippage: true, CustomSlippageBps: 100,
	}, event)
	require.NoError(t, err)
	assert.Equal(t, 5000, bps)
	assert.False(t, dynamic)

	// 关闭自动滑点时用自定义值
	bps, dynamic, err = p.resolveSlippage(ctx, &model.CopyTrade{
		AutoSlippage: false, CustomSlippageBps: 250,
	}, event)
	require.NoError(t, err)
	assert.Equal(t, 250, bps)
	assert.False(t, dynamic)

	// 其余情况走动态估算
	bps, dynamic, err = p.resolveSlippage(ctx, &model.CopyTrade{
		AutoSlippage: true,
	}, event)
	require.NoError(t, err)
	assert.Equal(t, 777, bps)
	assert.True(t, dynamic)
}
