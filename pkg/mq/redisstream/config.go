package redisstream

import "time"

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Streams []string `json:"streams" yaml:"streams" toml:"streams"`
	// 消费组名称
	Group string `json:"group" yaml:"group" toml:"group"`
	// 消费组内的消费者名称, 需全局唯一
	Consumer string `json:"consumer" yaml:"consumer" toml:"consumer"`
	// 每次批量读取的条数
	BatchSize int64 `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	// XREADGROUP 阻塞等待时长
	BlockTimeout time.Duration `json:"block_timeout" yaml:"block_timeout" toml:"block_timeout"`
	// 启动时认领超过该时长未ACK的旧消息(至少一次投递)
	ClaimMinIdle time.Duration `json:"claim_min_idle" yaml:"claim_min_idle" toml:"claim_min_idle"`
}

func (c *ConsumerConfig) withDefaults() ConsumerConfig {
	dst := *c
	if dst.BatchSize == 0 {
		dst.BatchSize = 10
	}
	if dst.BlockTimeout == 0 {
		dst.BlockTimeout = 2 * time.Second
	}
	if dst.ClaimMinIdle == 0 {
		dst.ClaimMinIdle = 30 * time.Second
	}
	return dst
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	// 流的最大长度(近似裁剪), 0表示不裁剪
	MaxLen int64 `json:"max_len" yaml:"max_len" toml:"max_len"`
}
