package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/school-broadcast/internal/model"
)

// RedisProgressCache keeps short-lived progress snapshots so a 2-second
// polling UI does not hit Postgres on every tick. Entries expire on their
// own; the TTL should stay close to the poll interval.
type RedisProgressCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProgressCache(rdb *redis.Client, ttl time.Duration) *RedisProgressCache {
	return &RedisProgressCache{rdb: rdb, ttl: ttl}
}

func key(broadcastID int64) string {
	return fmt.Sprintf("broadcast:progress:%d", broadcastID)
}

func (c *RedisProgressCache) GetProgress(ctx context.Context, broadcastID int64) (*model.Progress, bool) {
	raw, err := c.rdb.Get(ctx, key(broadcastID)).Bytes()
	if err != nil {
		return nil, false
	}

	var p model.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *RedisProgressCache) SetProgress(ctx context.Context, broadcastID int64, p model.Progress) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(broadcastID), b, c.ttl).Err()
}
