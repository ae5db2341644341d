package redisstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ninja0404/sol-trader/pkg/logger"
)

var defaultClient *redis.Client

var consumers = make(map[string]*Consumer)
var consumerMutex sync.RWMutex

// Setup 初始化进程级Redis连接, 供所有消费者/生产者共用
func Setup(addr string, password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis %s: %w", addr, err)
	}

	defaultClient = client
	logger.Info("✅ Redis连接已建立", logger.String("addr", addr), logger.Int("db", db))
	return nil
}

// Client 返回进程级Redis连接
func Client() *redis.Client {
	return defaultClient
}

// Close 关闭进程级Redis连接
func Close() error {
	if defaultClient == nil {
		return nil
	}
	return defaultClient.Close()
}

// SetupNamedConsumer 创建并登记一个命名消费者
func SetupNamedConsumer(name string, cfg ConsumerConfig) error {
	instance, err := NewConsumer(defaultClient, cfg)
	if err != nil {
		return err
	}

	consumerMutex.Lock()
	consumers[name] = instance
	consumerMutex.Unlock()

	return nil
}

func GetNamedConsumer(name string) *Consumer {
	consumerMutex.RLock()
	consumer := consumers[name]
	consumerMutex.RUnlock()
	return consumer
}

func StartNamedConsumer(name string) error {
	consumer := GetNamedConsumer(name)
	if consumer == nil {
		logger.Error("命名消费者不存在", logger.String("consumer", name))
		return fmt.Errorf("命名消费者不存在: %s", name)
	}
	return consumer.Start()
}

func CloseNamedConsumer(name string) error {
	consumer := GetNamedConsumer(name)
	if consumer == nil {
		logger.Error("命名消费者不存在", logger.String("consumer", name))
		return fmt.Errorf("命名消费者不存在: %s", name)
	}
	return consumer.Close()
}

func RegisterStreamHandlerForConsumer(name string, stream string, handler MessageHandler) error {
	consumer := GetNamedConsumer(name)
	if consumer == nil {
		logger.Error("命名消费者不存在", logger.String("consumer", name))
		return fmt.Errorf("命名消费者不存在: %s", name)
	}
	return consumer.RegisterStreamHandler(stream, handler)
}

// NewDefaultProducer 基于进程级连接创建生产者
func NewDefaultProducer(cfg ProducerConfig) *Producer {
	return NewProducer(defaultClient, cfg)
}
