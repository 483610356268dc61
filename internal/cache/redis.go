package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisAvailability — кэш слотов на Redis. Все ошибки Redis логируются
// и глотаются: промах дороже пересчёта не стоит.
type RedisAvailability struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisAvailability(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisAvailability {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisAvailability{client: client, ttl: ttl, log: log}
}

func (c *RedisAvailability) Get(ctx context.Context, doctorID, date string) ([]string, bool) {
	raw, err := c.client.Get(ctx, key(doctorID, date)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("availability cache get failed", zap.Error(err))
		}
		return nil, false
	}

	var slots []string
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		c.log.Warn("availability cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return slots, true
}

func (c *RedisAvailability) Set(ctx context.Context, doctorID, date string, slots []string) {
	if slots == nil {
		slots = []string{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(doctorID, date), raw, c.ttl).Err(); err != nil {
		c.log.Warn("availability cache set failed", zap.Error(err))
	}
}

func (c *RedisAvailability) Invalidate(ctx context.Context, doctorID, date string) {
	if err := c.client.Del(ctx, key(doctorID, date)).Err(); err != nil {
		c.log.Warn("availability cache invalidate failed", zap.Error(err))
	}
}

func (c *RedisAvailability) InvalidateDoctor(ctx context.Context, doctorID string) {
	iter := c.client.Scan(ctx, 0, key(doctorID, "*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Warn("availability cache invalidate failed", zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("availability cache scan failed", zap.Error(err))
	}
}
