package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/internal/settlement"
	"github.com/ninja0404/sol-trader/internal/trading/builder"
	"github.com/ninja0404/sol-trader/pkg/logger"
	"github.com/ninja0404/sol-trader/pkg/mq/redisstream"
	"github.com/ninja0404/sol-trader/pkg/utils"
)

const (
	// 默认3个分片消费者 + 最多10笔在途swap
	defaultShards             = 3
	defaultMaxConcurrentSwaps = 10

	defaultConsumerGroup = "trading-engine"

	// 提交重试3次, 结果写入重试2次
	sendMaxRetries   = 2
	recordMaxRetries = 1
)

// EngineConfig 交易引擎的并发参数
type EngineConfig struct {
	Shards             int
	MaxConcurrentSwaps int
	ConsumerGroup      string
}

func (c *EngineConfig) withDefaults() {
	if c.Shards <= 0 {
		c.Shards = defaultShards
	}
	if c.MaxConcurrentSwaps <= 0 {
		c.MaxConcurrentSwaps = defaultMaxConcurrentSwaps
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = defaultConsumerGroup
	}
}

// Engine 交易编排器: 分片消费交易意图流, 有界并发执行swap,
// 结算后把SwapResult发回结果流。
type Engine struct {
	service    *Service
	settlement *settlement.Processor
	producer   *redisstream.Producer

	config        EngineConfig
	consumerNames []string

	// slots 有界并发池, 每笔在途swap占一个槽位
	slots chan struct{}
	wg    sync.WaitGroup

	stopOnce sync.Once
}

func NewEngine(service *Service, settle *settlement.Processor, producer *redisstream.Producer, config EngineConfig) *Engine {
	config.withDefaults()
	return &Engine{
		service:    service,
		settlement: settle,
		producer:   producer,
		config:     config,
		slots:      make(chan struct{}, config.MaxConcurrentSwaps),
	}
}

// Start 启动全部分片消费者
func (e *Engine) Start() error {
	for i := 1; i <= e.config.Shards; i++ {
		name := fmt.Sprintf("trader-%d", i)
		err := redisstream.SetupNamedConsumer(name, redisstream.ConsumerConfig{
			Streams:  []string{common.StreamSwapEvent},
			Group:    e.config.ConsumerGroup,
			Consumer: name,
		})
		if err != nil {
			return errors.Wrapf(err, "创建分片消费者失败: %s", name)
		}
		if err := redisstream.RegisterStreamHandlerForConsumer(name, common.StreamSwapEvent, e.handleSwapEvent); err != nil {
			return err
		}
		if err := redisstream.StartNamedConsumer(name); err != nil {
			return errors.Wrapf(err, "启动分片消费者失败: %s", name)
		}
		e.consumerNames = append(e.consumerNames, name)
	}

	logger.Info("✅ 交易引擎已启动",
		logger.Int("shards", e.config.Shards),
		logger.Int("max_concurrent", e.config.MaxConcurrentSwaps))
	return nil
}

// Stop 停止消费并等待在途swap全部完成
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		for _, name := range e.consumerNames {
			if err := redisstream.CloseNamedConsumer(name); err != nil {
				logger.Warn("⚠️ 关闭分片消费者失败",
					logger.String("consumer", name), logger.FieldErr(err))
			}
		}
		e.wg.Wait()
		logger.Info("🛑 交易引擎已停止")
	})
}

// handleSwapEvent 解码意图并占用一个并发槽位后异步执行。
// 槽位获取是阻塞的, 对上游流形成背压。
func (e *Engine) handleSwapEvent(message []byte) error {
	event, err := common.DecodeSwapEvent(message)
	if err != nil {
		// 脏消息直接丢弃, 不能让单条坏事件卡死分片
		logger.Error("❌ 交易意图解码失败", logger.FieldErr(err))
		return nil
	}

	e.slots <- struct{}{}
	e.wg.Add(1)
	go e.execute(event)
	return nil
}

func (e *Engine) execute(event *common.SwapEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("❌ swap执行panic",
				logger.Any("panic", r),
				logger.FieldStack(utils.GetStack()))
		}
		<-e.slots
		e.wg.Done()
	}()

	ctx := context.Background()
	submitTime := time.Now().Unix()

	sig, execErr := e.executeWithRetry(ctx, event)
	if execErr != nil {
		logger.Error("❌ swap执行失败",
			logger.String("user", event.UserPubkey),
			logger.String("mint", event.TokenMint()),
			logger.FieldErr(execErr))
	}

	// 无论成败都产出结算记录, "没有记录"不是可接受的终态
	record, err := e.settlement.Process(ctx, sig, event)
	if err != nil {
		logger.Error("❌ 结算处理失败",
			logger.String("signature", sig.String()),
			logger.FieldErr(err))
	}

	result := &common.SwapResult{
		SwapEvent:  event,
		SwapRecord: record,
		UserPubkey: event.UserPubkey,
		SubmitTime: submitTime,
	}
	if !sig.IsZero() {
		result.TransactionHash = sig.String()
	}
	e.emitResult(ctx, result)
}

// executeWithRetry 只重试瞬态错误, 场所缺失/经济性错误立即终止
func (e *Engine) executeWithRetry(ctx context.Context, event *common.SwapEvent) (solana.Signature, error) {
	var sig solana.Signature
	operation := func() error {
		s, err := e.service.ExecuteSwap(ctx, event)
		if err != nil {
			if isPermanentError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		sig = s
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(newTradingBackoff(), sendMaxRetries), ctx))
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

func (e *Engine) emitResult(ctx context.Context, result *common.SwapResult) {
	payload, err := common.EncodeSwapResult(result)
	if err != nil {
		logger.Error("❌ 结果序列化失败", logger.FieldErr(err))
		return
	}

	operation := func() error {
		_, err := e.producer.Produce(ctx, common.StreamSwapResult, payload)
		return err
	}
	err = backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(newTradingBackoff(), recordMaxRetries), ctx))
	if err != nil {
		logger.Error("❌ 结果事件发送失败",
			logger.String("user", result.UserPubkey),
			logger.FieldErr(err))
		return
	}
	logger.Info("📊 结果事件已发送",
		logger.String("user", result.UserPubkey),
		logger.String("tx", result.TransactionHash))
}

// newTradingBackoff 指数退避: 1.5倍增长, 10%抖动, 单次等待上限2秒
func newTradingBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.1
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// isPermanentError 判断错误是否不可重试
func isPermanentError(err error) bool {
	return errors.Is(err, builder.ErrPoolNotFound) ||
		errors.Is(err, builder.ErrCurveNotFound) ||
		errors.Is(err, builder.ErrInvalidAmount) ||
		errors.Is(err, builder.ErrInsufficientBalance) ||
		errors.Is(err, builder.ErrAllBuildersFailed) ||
		errors.Is(err, ErrNoRouteFound)
}
