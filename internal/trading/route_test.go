package trading

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/internal/common"
)

type fakeCurveProber struct {
	curve  *chain.BondingCurveAccount
	err    error
	probes int
}

func (f *fakeCurveProber) FetchBondingCurve(context.Context, solana.PublicKey) (*chain.BondingCurveAccount, solana.PublicKey, solana.PublicKey, error) {
	f.probes++
	return f.curve, solana.PublicKey{}, solana.PublicKey{}, f.err
}

type fakePoolLookup struct {
	pool    *chain.RaydiumPoolKeys
	err     error
	lookups int
}

func (f *fakePoolLookup) PreferredPool(context.Context, solana.PublicKey) (*chain.RaydiumPoolKeys, error) {
	f.lookups++
	return f.pool, f.err
}

func buyIntent(mint, programID string) *common.SwapEvent {
	return &common.SwapEvent{
		UserPubkey: "user",
		SwapMode:   common.SwapModeExactIn,
		InputMint:  common.WSOL.String(),
		OutputMint: mint,
		ProgramID:  programID,
	}
}

func TestSelectRouteHintSkipsProbing(t *testing.T) {
	mint := solana.NewWallet().PublicKey().String()
	prober := &fakeCurveProber{err: chain.ErrCurveNotFound}
	pools := &fakePoolLookup{err: chain.ErrPoolNotFound}
	s := NewSelector(prober, pools)

	route, err := s.SelectRoute(context.Background(), buyIntent(mint, common.PumpFunProgram.String()))
	require.NoError(t, err)
	assert.Equal(t, RoutePump, route)

	route, err = s.SelectRoute(context.Background(), buyIntent(mint, common.RaydiumAMMV4Program.String()))
	require.NoError(t, err)
	assert.Equal(t, RouteRaydiumV4, route)

	// 提示命中时不做任何链上探测
	assert.Zero(t, prober.probes)
	assert.Zero(t, pools.lookups)
}

func TestSelectRouteActiveCurveWinsOverPool(t *testing.T) {
	mint := solana.NewWallet().PublicKey().String()
	prober := &fakeCurveProber{curve: &chain.BondingCurveAccount{Complete: false}}
	pools := &fakePoolLookup{pool: &chain.RaydiumPoolKeys{}}
	s := NewSelector(prober, pools)

	route, err := s.SelectRoute(context.Background(), buyIntent(mint, ""))
	require.NoError(t, err)
	assert.Equal(t, RoutePump, route)
	assert.Zero(t, pools.lookups)
}

func TestSelectRouteGraduatedCurveFallsThrough(t *testing.T) {
	mint := solana.NewWallet().PublicKey().String()
	prober := &fakeCurveProber{curve: &chain.BondingCurveAccount{Complete: true}}
	pools := &fakePoolLookup{pool: &chain.RaydiumPoolKeys{}}
	s := NewSelector(prober, pools)

	route, err := s.SelectRoute(context.Background(), buyIntent(mint, ""))
	require.NoError(t, err)
	assert.Equal(t, RouteRaydiumV4, route)
}

func TestSelectRouteDexFallback(t *testing.T) {
	mint := solana.NewWallet().PublicKey().String()
	prober := &fakeCurveProber{err: chain.ErrCurveNotFound}
	pools := &fakePoolLookup{err: chain.ErrPoolNotFound}
	s := NewSelector(prober, pools)

	route, err := s.SelectRoute(context.Background(), buyIntent(mint, ""))
	require.NoError(t, err)
	assert.Equal(t, RouteDex, route)
}

func TestSelectRouteTransientErrorsPropagate(t *testing.T) {
	mint := solana.NewWallet().PublicKey().String()
	rpcDown := errors.New("rpc超时")

	// 曲线探测的瞬时错误不允许被当成"没有曲线"
	s := NewSelector(&fakeCurveProber{err: rpcDown}, &fakePoolLookup{pool: &chain.RaydiumPoolKeys{}})
	_, err := s.SelectRoute(context.Background(), buyIntent(mint, ""))
	assert.ErrorIs(t, err, rpcDown)

	// 池子索引的瞬时错误同理
	s = NewSelector(&fakeCurveProber{err: chain.ErrCurveNotFound}, &fakePoolLookup{err: rpcDown})
	_, err = s.SelectRoute(context.Background(), buyIntent(mint, ""))
	assert.ErrorIs(t, err, rpcDown)
}

func TestSelectRouteInvalidMint(t *testing.T) {
	s := NewSelector(&fakeCurveProber{}, &fakePoolLookup{})

	event := buyIntent("", "")
	event.InputMint = common.WSOL.String()
	event.OutputMint = ""
	_, err := s.SelectRoute(context.Background(), event)
	assert.ErrorIs(t, err, ErrNoRouteFound)

	_, err = s.SelectRoute(context.Background(), buyIntent("not-base58!!!", ""))
	assert.ErrorIs(t, err, ErrNoRouteFound)
}
