package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"trainerbook/backend/internal/domain"
)

const redisKeyPrefix = "trainerbook:occ:"

// RedisCache shares occupancy across server instances. Each trainer has a key
// set listing its cached dates so a trainer-wide invalidation needs no SCAN unless
// that set cannot be read.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, log: log.With(slog.String("component", "cache.redis"))}
}

func entryKey(trainerID string, date time.Time) string {
	return fmt.Sprintf("%s%s:%s", redisKeyPrefix, trainerID, dateKey(date))
}

func indexKey(trainerID string) string {
	return fmt.Sprintf("%s%s:keys", redisKeyPrefix, trainerID)
}

// entryPattern matches every date entry of the trainer, not its index key.
func entryPattern(trainerID string) string {
	return fmt.Sprintf("%s%s:????-??-??", redisKeyPrefix, trainerID)
}

func (c *RedisCache) scanEntries(ctx context.Context, trainerID string) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, entryPattern(trainerID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (c *RedisCache) Get(ctx context.Context, trainerID string, date time.Time) ([]domain.Interval, bool) {
	b, err := c.client.Get(ctx, entryKey(trainerID, date)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("cache get failed", slog.String("trainer_id", trainerID), slog.Any("err", err))
		return nil, false
	}
	var occupied []domain.Interval
	if err := msgpack.Unmarshal(b, &occupied); err != nil {
		c.log.Warn("cache entry undecodable", slog.String("trainer_id", trainerID), slog.Any("err", err))
		return nil, false
	}
	return occupied, true
}

func (c *RedisCache) Set(ctx context.Context, trainerID string, date time.Time, occupied []domain.Interval) {
	if occupied == nil {
		occupied = []domain.Interval{}
	}
	b, err := msgpack.Marshal(occupied)
	if err != nil {
		c.log.Warn("cache encode failed", slog.String("trainer_id", trainerID), slog.Any("err", err))
		return
	}

	key := entryKey(trainerID, date)
	idx := indexKey(trainerID)
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, b, c.ttl)
		p.SAdd(ctx, idx, key)
		p.Expire(ctx, idx, 2*c.ttl)
		return nil
	})
	if err != nil {
		c.log.Warn("cache set failed", slog.String("trainer_id", trainerID), slog.Any("err", err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, trainerID string, dates ...time.Time) {
	idx := indexKey(trainerID)

	var keys []string
	if len(dates) == 0 {
		members, err := c.client.SMembers(ctx, idx).Result()
		if err != nil {
			c.log.Warn("cache index read failed; scanning trainer keys", slog.String("trainer_id", trainerID), slog.Any("err", err))
			if members, err = c.scanEntries(ctx, trainerID); err != nil {
				c.log.Warn("cache key scan failed; entries expire with their ttl",
					slog.String("trainer_id", trainerID),
					slog.Duration("ttl", c.ttl),
					slog.Any("err", err),
				)
			}
		}
		keys = append(members, idx)
	} else {
		for _, d := range dates {
			keys = append(keys, entryKey(trainerID, d))
		}
	}

	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		if len(dates) > 0 {
			members := make([]interface{}, len(keys))
			for i, k := range keys {
				members[i] = k
			}
			p.SRem(ctx, idx, members...)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("cache invalidate failed", slog.String("trainer_id", trainerID), slog.Any("err", err))
	}
}
