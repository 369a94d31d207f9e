package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
)

// Store is the byte-level backend under the semantic cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes up to maxFraction of the keys under prefix
	// and returns how many were deleted.
	DeletePrefix(ctx context.Context, prefix string, maxFraction float64) (int, error)
	// UsedBytes reports the approximate memory held by cached values.
	UsedBytes(ctx context.Context) (int64, error)
	Close() error
}

// RedisStore implements Store on a Redis instance.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		MaxRetries:   2,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string, maxFraction float64) (int, error) {
	pattern := prefix + "*"
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 500).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	limit := len(keys)
	if maxFraction > 0 && maxFraction < 1 {
		limit = int(float64(len(keys)) * maxFraction)
		if limit == 0 {
			limit = 1
		}
	}
	keys = keys[:limit]

	deleted := 0
	for start := 0; start < len(keys); start += 500 {
		end := start + 500
		if end > len(keys) {
			end = len(keys)
		}
		n, err := s.client.Del(ctx, keys[start:end]...).Result()
		deleted += int(n)
		if err != nil {
			return deleted, fmt.Errorf("redis del: %w", err)
		}
	}
	logger.Infof("cache: purged %d keys under %s", deleted, prefix)
	return deleted, nil
}

func (s *RedisStore) UsedBytes(ctx context.Context) (int64, error) {
	info, err := s.client.Info(ctx, "memory").Result()
	if err != nil {
		return 0, fmt.Errorf("redis info: %w", err)
	}
	for _, line := range strings.Split(info, "\r\n") {
		if v, ok := strings.CutPrefix(line, "used_memory:"); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("redis info used_memory: %w", err)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("redis info: used_memory not reported")
}
