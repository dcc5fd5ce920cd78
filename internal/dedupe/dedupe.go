// Package dedupe remembers webhook message ids in redis so provider retries
// are answered without touching storage.
package dedupe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewClient connects to addr. An empty addr returns nil, which New accepts.
func NewClient(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// New returns a deduper over rdb. A nil client makes every Claim succeed.
func New(rdb *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Deduper{rdb: rdb, ttl: ttl, prefix: "dedup:webhook:"}
}

// Claim returns true the first time key is seen within the TTL.
func (d *Deduper) Claim(ctx context.Context, key string) (bool, error) {
	if d.rdb == nil {
		return true, nil
	}
	return d.rdb.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
}

// Release forgets key so a failed delivery can be retried.
func (d *Deduper) Release(ctx context.Context, key string) error {
	if d.rdb == nil {
		return nil
	}
	return d.rdb.Del(ctx, d.prefix+key).Err()
}

func (d *Deduper) Close() error {
	if d.rdb == nil {
		return nil
	}
	return d.rdb.Close()
}
