package builder

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	tag       string
	delay     time.Duration
	err       error
	cancelled atomic.Bool
}

func (f *fakeBuilder) Tag() string { return f.tag }

func (f *fakeBuilder) BuildSwapTransaction(ctx context.Context, _ *SwapParams) (*solana.Transaction, error) {
	select {
	case <-ctx.Done():
		f.cancelled.Store(true)
		return nil, ctx.Err()
	case <-time.After(f.delay):
	}
	if f.err != nil {
		return nil, f.err
	}
	return &solana.Transaction{}, nil
}

func TestAggregateRaceFastestWins(t *testing.T) {
	fast := &fakeBuilder{tag: "fast", delay: 10 * time.Millisecond}
	slow := &fakeBuilder{tag: "slow", delay: 500 * time.Millisecond}

	agg := NewAggregateBuilder(slow, fast)
	result, err := agg.Race(context.Background(), &SwapParams{})
	require.NoError(t, err)
	assert.Equal(t, "fast", result.Tag)
	assert.NotNil(t, result.Tx)

	// 胜出后慢的一方应被取消而不是跑完
	assert.Eventually(t, func() bool { return slow.cancelled.Load() },
		time.Second, 5*time.Millisecond)
}

func TestAggregateRaceFailureDoesNotBlockWinner(t *testing.T) {
	failing := &fakeBuilder{tag: "failing", delay: time.Millisecond, err: errors.New("boom")}
	ok := &fakeBuilder{tag: "ok", delay: 50 * time.Millisecond}

	agg := NewAggregateBuilder(failing, ok)
	result, err := agg.Race(context.Background(), &SwapParams{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Tag)
}

func TestAggregateRaceAllFail(t *testing.T) {
	a := &fakeBuilder{tag: "a", delay: time.Millisecond, err: ErrPoolNotFound}
	b := &fakeBuilder{tag: "b", delay: time.Millisecond, err: errors.New("connect refused")}

	agg := NewAggregateBuilder(a, b)
	_, err := agg.Race(context.Background(), &SwapParams{})
	require.Error(t, err)

	// 聚合错误必须保留每个成员的失败原因
	assert.ErrorIs(t, err, ErrAllBuildersFailed)
	assert.ErrorIs(t, err, ErrPoolNotFound)
	assert.Contains(t, err.Error(), "connect refused")
}

func TestAggregateRaceNoBuilders(t *testing.T) {
	agg := NewAggregateBuilder()
	_, err := agg.Race(context.Background(), &SwapParams{})
	assert.ErrorIs(t, err, ErrAllBuildersFailed)
}

func TestAggregateRaceParentCancel(t *testing.T) {
	slow := &fakeBuilder{tag: "slow", delay: time.Second}
	agg := NewAggregateBuilder(slow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := agg.Race(ctx, &SwapParams{})
	assert.ErrorIs(t, err, context.Canceled)
}
