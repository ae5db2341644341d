package builder

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/pkg/logger"
)

// TagAggregate 聚合构建器自身的标签, 获胜成员的标签见AggregateResult
const TagAggregate = "aggregate"

// ErrAllBuildersFailed 所有成员构建器都失败
var ErrAllBuildersFailed = errors.New("所有构建器均构建失败")

// AggregateResult 竞速结果, Tag标识获胜的成员构建器
type AggregateResult struct {
	Tx  *solana.Transaction
	Tag string
}

// AggregateBuilder 并发竞速多个构建器, 最先成功者胜出。
// 不保证成员优先级, 平局按完成顺序决定。
type AggregateBuilder struct {
	builders []TransactionBuilder
}

func NewAggregateBuilder(builders ...TransactionBuilder) *AggregateBuilder {
	return &AggregateBuilder{builders: builders}
}

func (a *AggregateBuilder) Tag() string { return TagAggregate }

func (a *AggregateBuilder) BuildSwapTransaction(ctx context.Context, params *SwapParams) (*solana.Transaction, error) {
	result, err := a.Race(ctx, params)
	if err != nil {
		return nil, err
	}
	return result.Tx, nil
}

type raceOutcome struct {
	tag string
	tx  *solana.Transaction
	err error
}

// Race 并发发起全部构建, 第一个成功立即取消其余成员。
// 全部失败时返回保留每个成员错误的聚合错误。
func (a *AggregateBuilder) Race(ctx context.Context, params *SwapParams) (*AggregateResult, error) {
	if len(a.builders) == 0 {
		return nil, ErrAllBuildersFailed
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan raceOutcome, len(a.builders))
	for _, b := range a.builders {
		go func(b TransactionBuilder) {
			tx, err := b.BuildSwapTransaction(raceCtx, params)
			outcomes <- raceOutcome{tag: b.Tag(), tx: tx, err: err}
		}(b)
	}

	var merr *multierror.Error
	for range a.builders {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case outcome := <-outcomes:
			if outcome.err != nil {
				logger.Warn("⚠️ 成员构建器失败",
					logger.String("builder", outcome.tag),
					logger.FieldErr(outcome.err))
				merr = multierror.Append(merr, errors.Wrap(outcome.err, outcome.tag))
				continue
			}
			cancel()
			logger.Debug("🏁 构建竞速胜出", logger.String("builder", outcome.tag))
			return &AggregateResult{Tx: outcome.tx, Tag: outcome.tag}, nil
		}
	}

	return nil, multierror.Append(merr, ErrAllBuildersFailed)
}
