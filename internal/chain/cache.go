package chain

import (
	"context"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	pkgerr "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	blockhashCacheKey = "trading:cache:blockhash"
	rentCacheKey      = "trading:cache:min_rent"

	blockhashTTL = 2 * time.Second
	rentTTL      = time.Hour
)

// Cache 为高频读的链上数据提供 Redis 透读缓存。
// blockhash 和租金豁免金额每个交易都要用,没必要每次打 RPC。
type Cache struct {
	rdb    *redis.Client
	client *Client
}

func NewCache(rdb *redis.Client, client *Client) *Cache {
	return &Cache{rdb: rdb, client: client}
}

// LatestBlockhash 优先读缓存,短 TTL 保证 blockhash 不会过期失效
func (c *Cache) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if val, err := c.rdb.Get(ctx, blockhashCacheKey).Result(); err == nil && val != "" {
		if hash, err := solana.HashFromBase58(val); err == nil {
			return hash, nil
		}
	}

	hash, err := c.client.LatestBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, err
	}
	if err := c.rdb.Set(ctx, blockhashCacheKey, hash.String(), blockhashTTL).Err(); err != nil {
		return hash, pkgerr.Wrap(err, "写入blockhash缓存失败")
	}
	return hash, nil
}

// MinBalanceForTokenAccount 租金参数几乎不变,长 TTL 缓存
func (c *Cache) MinBalanceForTokenAccount(ctx context.Context) (uint64, error) {
	if val, err := c.rdb.Get(ctx, rentCacheKey).Result(); err == nil && val != "" {
		if lamports, err := strconv.ParseUint(val, 10, 64); err == nil {
			return lamports, nil
		}
	}

	lamports, err := c.client.MinBalanceForTokenAccount(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.rdb.Set(ctx, rentCacheKey, strconv.FormatUint(lamports, 10), rentTTL).Err(); err != nil {
		return lamports, pkgerr.Wrap(err, "写入租金缓存失败")
	}
	return lamports, nil
}
