package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisWindowStore shares sliding-window counters across gateway instances
// using a sorted set per key, scored by hit time.
type RedisWindowStore struct {
	client *redis.Client
}

// NewRedisWindowStore connects to Redis by URL (falls back to treating the
// string as a plain address).
func NewRedisWindowStore(redisURL string) (*RedisWindowStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisWindowStore{client: client}, nil
}

// Incr records a hit and returns the in-window count and the expiry of the
// oldest in-window hit. All four commands run in one pipeline round trip.
func (s *RedisWindowStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := time.Now()
	cutoff := now.Add(-window)
	redisKey := "rl:" + key

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score: float64(now.UnixNano()),
		// Unique member so simultaneous hits in the same nanosecond all count.
		Member: fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8]),
	})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis window incr: %w", err)
	}

	count := int(countCmd.Val())
	resetAt := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.Unix(0, int64(oldest[0].Score)).Add(window)
	}
	return count, resetAt, nil
}

// Close releases the Redis connection.
func (s *RedisWindowStore) Close() error {
	return s.client.Close()
}
