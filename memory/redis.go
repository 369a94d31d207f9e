package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
)

const redisKeyPrefix = "mem:sess:"

// RedisHistory persists conversation history in redis so sessions
// survive restarts. Each session is one JSON value with a sliding TTL.
type RedisHistory struct {
	client       *redis.Client
	ttl          time.Duration
	maxExchanges int
}

func NewRedisHistory(client *redis.Client, ttl time.Duration, maxExchanges int) *RedisHistory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxExchanges <= 0 {
		maxExchanges = 8
	}
	return &RedisHistory{client: client, ttl: ttl, maxExchanges: maxExchanges}
}

func (r *RedisHistory) key(sessionID string) string { return redisKeyPrefix + sessionID }

func (r *RedisHistory) load(sessionID string) []Exchange {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	raw, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("memory: redis get failed for %s: %v", sessionID, err)
		}
		return nil
	}
	var rounds []Exchange
	if err := json.Unmarshal(raw, &rounds); err != nil {
		logger.Warnf("memory: corrupt session %s dropped: %v", sessionID, err)
		return nil
	}
	return rounds
}

// Append is best-effort; a redis failure loses the exchange but never
// fails the query.
func (r *RedisHistory) Append(sessionID string, ex Exchange) {
	if sessionID == "" {
		return
	}
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}
	rounds := append(r.load(sessionID), ex)
	if len(rounds) > r.maxExchanges {
		rounds = rounds[len(rounds)-r.maxExchanges:]
	}
	raw, err := json.Marshal(rounds)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := r.client.Set(ctx, r.key(sessionID), raw, r.ttl).Err(); err != nil {
		logger.Warnf("memory: redis set failed for %s: %v", sessionID, err)
	}
}

func (r *RedisHistory) LastN(sessionID string, n int) []Exchange {
	rounds := r.load(sessionID)
	if len(rounds) == 0 {
		return nil
	}
	if n <= 0 || n > len(rounds) {
		n = len(rounds)
	}
	out := make([]Exchange, n)
	copy(out, rounds[len(rounds)-n:])
	return out
}

func (r *RedisHistory) Clear(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		logger.Warnf("memory: redis del failed for %s: %v", sessionID, err)
	}
}

func (r *RedisHistory) ContextString(sessionID string, n int) string {
	return foldContext(r.LastN(sessionID, n))
}
