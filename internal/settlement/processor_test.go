package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/internal/model"
)

type statusReply struct {
	finalized bool
	success   bool
	err       error
}

type fakeChain struct {
	replies  []statusReply
	attempts int

	txResult *rpc.GetTransactionResult
	txErr    error
}

func (f *fakeChain) SignatureStatus(_ context.Context, _ solana.Signature) (bool, bool, error) {
	var reply statusReply
	if f.attempts < len(f.replies) {
		reply = f.replies[f.attempts]
	}
	f.attempts++
	return reply.finalized, reply.success, reply.err
}

func (f *fakeChain) Transaction(_ context.Context, _ solana.Signature) (*rpc.GetTransactionResult, error) {
	return f.txResult, f.txErr
}

type fakeRecordRepo struct {
	created []*model.SwapRecord
}

func (f *fakeRecordRepo) Create(record *model.SwapRecord) error {
	f.created = append(f.created, record)
	return nil
}

func (f *fakeRecordRepo) GetBySignature(string) (*model.SwapRecord, error) {
	return nil, errors.New("not found")
}

func newTestProcessor(chain *fakeChain, repo *fakeRecordRepo, maxAttempts int) *Processor {
	return &Processor{
		client:       chain,
		records:      repo,
		analyzer:     NewAnalyzer(),
		pollInterval: time.Millisecond,
		maxAttempts:  maxAttempts,
	}
}

func testEvent() *common.SwapEvent {
	return &common.SwapEvent{
		UserPubkey: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		SwapMode:   common.SwapModeExactIn,
		InputMint:  common.WSOL.String(),
		OutputMint: "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr",
		Amount:     1_000_000_000,
		Timestamp:  1700000000,
	}
}

func TestValidateReturnsOnFirstDefinitiveStatus(t *testing.T) {
	chain := &fakeChain{replies: []statusReply{{finalized: true, success: true}}}
	p := newTestProcessor(chain, &fakeRecordRepo{}, 60)

	status, err := p.Validate(context.Background(), solana.Signature{1})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, status)
	assert.Equal(t, 1, chain.attempts)
}

func TestValidateFailedTransaction(t *testing.T) {
	chain := &fakeChain{replies: []statusReply{
		{},                                // 尚未确认
		{finalized: true, success: false}, // 上链但执行失败
	}}
	p := newTestProcessor(chain, &fakeRecordRepo{}, 60)

	status, err := p.Validate(context.Background(), solana.Signature{1})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, status)
	assert.Equal(t, 2, chain.attempts)
}

func TestValidateExpiresAfterMaxAttempts(t *testing.T) {
	// 全程查询报错: 瞬态错误不算负向结果, 但消耗预算, 耗尽后EXPIRED
	chain := &fakeChain{}
	for i := 0; i < 10; i++ {
		chain.replies = append(chain.replies, statusReply{err: errors.New("rpc timeout")})
	}
	p := newTestProcessor(chain, &fakeRecordRepo{}, 5)

	status, err := p.Validate(context.Background(), solana.Signature{1})
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, status)
	assert.Equal(t, 5, chain.attempts)
}

func TestValidateContextCancel(t *testing.T) {
	chain := &fakeChain{}
	p := newTestProcessor(chain, &fakeRecordRepo{}, 60)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Validate(ctx, solana.Signature{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessNeverSubmitted(t *testing.T) {
	records := &fakeRecordRepo{}
	p := newTestProcessor(&fakeChain{}, records, 5)
	event := testEvent()

	record, err := p.Process(context.Background(), solana.Signature{}, event)
	require.NoError(t, err)

	// 从未提交也必须留下一条审计记录
	require.Len(t, records.created, 1)
	assert.Empty(t, record.Signature)
	assert.Empty(t, string(record.Status))
	assert.Equal(t, event.Amount, record.InputAmount)
	assert.Equal(t, event.UserPubkey, record.UserPubkey)
}

func TestProcessFailedProducesRecordWithoutAnalysis(t *testing.T) {
	chain := &fakeChain{replies: []statusReply{{finalized: true, success: false}}}
	records := &fakeRecordRepo{}
	p := newTestProcessor(chain, records, 5)

	sig := solana.Signature{7}
	record, err := p.Process(context.Background(), sig, testEvent())
	require.NoError(t, err)

	require.Len(t, records.created, 1)
	assert.Equal(t, model.StatusFailed, record.Status)
	assert.Equal(t, sig.String(), record.Signature)
	assert.Zero(t, record.Fee)
	assert.Zero(t, record.SolChange)
}

func TestProcessSuccessSurvivesAnalysisFailure(t *testing.T) {
	// 分析失败只降级, 状态记录本身不能丢
	chain := &fakeChain{
		replies: []statusReply{{finalized: true, success: true}},
		txErr:   errors.New("node pruned the transaction"),
	}
	records := &fakeRecordRepo{}
	p := newTestProcessor(chain, records, 5)

	record, err := p.Process(context.Background(), solana.Signature{9}, testEvent())
	require.NoError(t, err)

	require.Len(t, records.created, 1)
	assert.Equal(t, model.StatusSuccess, record.Status)
	assert.Zero(t, record.Slot)
}
