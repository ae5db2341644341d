package chain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"
	pkgerr "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	poolKeyPrefix = "trading:pool:"
	poolTTL       = 10 * time.Minute
)

// RaydiumPoolKeys Raydium AMM V4 池子的完整账户集合,
// 构造 swap 指令需要全部 17 个账户
type RaydiumPoolKeys struct {
	ID               solana.PublicKey `json:"id"`
	BaseMint         solana.PublicKey `json:"base_mint"`
	QuoteMint        solana.PublicKey `json:"quote_mint"`
	BaseDecimals     uint8            `json:"base_decimals"`
	QuoteDecimals    uint8            `json:"quote_decimals"`
	Authority        solana.PublicKey `json:"authority"`
	OpenOrders       solana.PublicKey `json:"open_orders"`
	TargetOrders     solana.PublicKey `json:"target_orders"`
	BaseVault        solana.PublicKey `json:"base_vault"`
	QuoteVault       solana.PublicKey `json:"quote_vault"`
	MarketProgramID  solana.PublicKey `json:"market_program_id"`
	MarketID         solana.PublicKey `json:"market_id"`
	MarketAuthority  solana.PublicKey `json:"market_authority"`
	MarketBaseVault  solana.PublicKey `json:"market_base_vault"`
	MarketQuoteVault solana.PublicKey `json:"market_quote_vault"`
	MarketBids       solana.PublicKey `json:"market_bids"`
	MarketAsks       solana.PublicKey `json:"market_asks"`
	MarketEventQueue solana.PublicKey `json:"market_event_queue"`
}

// BaseIsToken 池子 base 侧是否为目标代币(另一侧是 WSOL)
func (k *RaydiumPoolKeys) BaseIsToken(wsol solana.PublicKey) bool {
	return !k.BaseMint.Equals(wsol)
}

// PoolReserves 池子两侧金库的当前储备
type PoolReserves struct {
	Base  uint64
	Quote uint64
}

// PoolStore Raydium 池子索引的 Redis 缓存。
// 池子账户由行情侧监听程序发现后写入,交易侧只读。
type PoolStore struct {
	rdb    *redis.Client
	client *Client
}

func NewPoolStore(rdb *redis.Client, client *Client) *PoolStore {
	return &PoolStore{rdb: rdb, client: client}
}

// PreferredPool 按 mint 查询可用池子,缓存未命中视为无池
func (s *PoolStore) PreferredPool(ctx context.Context, mint solana.PublicKey) (*RaydiumPoolKeys, error) {
	data, err := s.rdb.Get(ctx, poolKeyPrefix+mint.String()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrPoolNotFound
		}
		return nil, pkgerr.Wrap(err, "读取池子缓存失败")
	}

	var keys RaydiumPoolKeys
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		return nil, pkgerr.Wrap(err, "解析池子缓存失败")
	}
	if keys.ID.IsZero() {
		return nil, ErrPoolNotFound
	}
	return &keys, nil
}

// SavePool 写入池子索引,由外部发现流程调用
func (s *PoolStore) SavePool(ctx context.Context, mint solana.PublicKey, keys *RaydiumPoolKeys) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return pkgerr.Wrap(err, "序列化池子信息失败")
	}
	if err := s.rdb.Set(ctx, poolKeyPrefix+mint.String(), data, poolTTL).Err(); err != nil {
		return pkgerr.Wrap(err, "写入池子缓存失败")
	}
	return nil
}

// Reserves 实时读取两侧金库余额,报价必须用最新储备
func (s *PoolStore) Reserves(ctx context.Context, keys *RaydiumPoolKeys) (*PoolReserves, error) {
	base, _, err := s.client.TokenAccountBalance(ctx, keys.BaseVault)
	if err != nil {
		return nil, pkgerr.Wrap(err, "读取base金库失败")
	}
	quote, _, err := s.client.TokenAccountBalance(ctx, keys.QuoteVault)
	if err != nil {
		return nil, pkgerr.Wrap(err, "读取quote金库失败")
	}
	return &PoolReserves{Base: base, Quote: quote}, nil
}
