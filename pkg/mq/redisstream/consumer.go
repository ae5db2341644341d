package redisstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ninja0404/sol-trader/pkg/logger"
	"github.com/ninja0404/sol-trader/pkg/utils"
)

// MessageHandler 处理一条流消息的payload
type MessageHandler func(message []byte) error

// payloadField 流消息中承载数据的字段名
const payloadField = "payload"

// Consumer 基于Redis Stream消费组的消费者
//
// 每个流是一个append-only日志, 条目ID单调递增; 消费者加入命名消费组,
// 批量读取并逐条ACK, 宕机未ACK的消息会被重新认领, 语义为至少一次投递。
type Consumer struct {
	rdb     *redis.Client
	config  ConsumerConfig
	streams []string

	handlers map[string]MessageHandler

	done   chan struct{}
	closed chan struct{}
}

func NewConsumer(rdb *redis.Client, cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Streams) == 0 {
		return nil, errors.New("no streams configured")
	}
	if cfg.Group == "" {
		return nil, errors.New("consumer group is required")
	}
	full := cfg.withDefaults()
	if full.Consumer == "" {
		full.Consumer = fmt.Sprintf("%s-%s", full.Group, utils.RandString(8))
	}

	return &Consumer{
		rdb:      rdb,
		config:   full,
		streams:  full.Streams,
		handlers: make(map[string]MessageHandler),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
	}, nil
}

// RegisterStreamHandler 注册某个流的消息处理器
func (c *Consumer) RegisterStreamHandler(stream string, h MessageHandler) error {
	for _, s := range c.streams {
		if s == stream {
			c.handlers[stream] = h
			return nil
		}
	}
	return errors.New("stream not in consumer list")
}

// Start 创建消费组并启动消费循环
func (c *Consumer) Start() error {
	ctx := context.Background()
	for _, stream := range c.streams {
		// 组已存在时返回BUSYGROUP, 忽略
		err := c.rdb.XGroupCreateMkStream(ctx, stream, c.config.Group, "0").Err()
		if err != nil && !isBusyGroup(err) {
			return fmt.Errorf("create consumer group on %s: %w", stream, err)
		}
	}

	go c.consumeLoop()

	logger.Info("✅ Redis Stream消费者已启动",
		logger.Any("streams", c.streams),
		logger.String("group", c.config.Group),
		logger.String("consumer", c.config.Consumer))
	return nil
}

// Close 停止消费循环并等待其退出
func (c *Consumer) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	<-c.closed
	logger.Info("redis stream consumer closed", logger.String("group", c.config.Group))
	return nil
}

func (c *Consumer) consumeLoop() {
	defer close(c.closed)

	ctx := context.Background()

	// 先认领长期未ACK的旧消息, 保证崩溃前的批次可被重投
	c.claimStale(ctx)

	streamArgs := make([]string, 0, len(c.streams)*2)
	for _, s := range c.streams {
		streamArgs = append(streamArgs, s)
	}
	for range c.streams {
		streamArgs = append(streamArgs, ">")
	}

	for {
		select {
		case <-c.done:
			return
		default:
		}

		res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.config.Group,
			Consumer: c.config.Consumer,
			Streams:  streamArgs,
			Count:    c.config.BatchSize,
			Block:    c.config.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			logger.Error("redis stream read error", logger.FieldErr(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				c.handleMessage(ctx, stream.Stream, msg)
			}
		}
	}
}

// claimStale 认领其他消费者留下的超时未ACK消息
func (c *Consumer) claimStale(ctx context.Context) {
	for _, stream := range c.streams {
		start := "0-0"
		for {
			msgs, next, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   stream,
				Group:    c.config.Group,
				Consumer: c.config.Consumer,
				MinIdle:  c.config.ClaimMinIdle,
				Start:    start,
				Count:    c.config.BatchSize,
			}).Result()
			if err != nil {
				logger.Warn("claim pending messages failed",
					logger.String("stream", stream), logger.FieldErr(err))
				break
			}
			for _, msg := range msgs {
				c.handleMessage(ctx, stream, msg)
			}
			if next == "0-0" || len(msgs) == 0 {
				break
			}
			start = next
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, stream string, msg redis.XMessage) {
	h, ok := c.handlers[stream]
	if !ok {
		logger.Warn("no handler for stream", logger.String("stream", stream))
		return
	}

	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		// 格式不合法的消息直接ACK丢弃, 避免反复重投
		logger.Error("stream message missing payload",
			logger.String("stream", stream), logger.String("id", msg.ID))
		c.ack(ctx, stream, msg.ID)
		return
	}

	err := c.safeHandle(h, []byte(payload))
	if err != nil {
		// 不ACK, 留在PEL等待下次认领重投
		logger.Error("stream message handler error",
			logger.String("stream", stream),
			logger.String("id", msg.ID),
			logger.FieldErr(err))
		return
	}

	c.ack(ctx, stream, msg.ID)
}

func (c *Consumer) safeHandle(h MessageHandler, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovery from stream message handler",
				logger.Any("panic", r),
				logger.FieldStack(utils.GetStack()))
			err = fmt.Errorf("panic in message handler: %v", r)
		}
	}()
	return h(payload)
}

func (c *Consumer) ack(ctx context.Context, stream, id string) {
	if err := c.rdb.XAck(ctx, stream, c.config.Group, id).Err(); err != nil {
		logger.Error("ack message failed",
			logger.String("stream", stream),
			logger.String("id", id),
			logger.FieldErr(err))
	}
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
