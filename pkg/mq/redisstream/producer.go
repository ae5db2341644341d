package redisstream

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Producer 向Redis Stream追加消息
type Producer struct {
	rdb    *redis.Client
	config ProducerConfig
}

func NewProducer(rdb *redis.Client, cfg ProducerConfig) *Producer {
	return &Producer{
		rdb:    rdb,
		config: cfg,
	}
}

// Produce 追加一条消息, 返回流分配的单调递增ID
func (p *Producer) Produce(ctx context.Context, stream string, payload []byte) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{payloadField: payload},
	}
	if p.config.MaxLen > 0 {
		args.MaxLen = p.config.MaxLen
		args.Approx = true
	}
	return p.rdb.XAdd(ctx, args).Result()
}
