package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// RedisStore implements Store on a Redis sorted set per key, the
// `ZADD`/`ZREMRANGEBYSCORE`/`ZCARD` sliding-window pattern: members are
// request timestamps (as scores), pruned lazily on every Record call.
// Used instead of InMemoryStore when the server runs behind multiple
// processes that must share one rate-limit view.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore connects to the Redis/Valkey/DragonflyDB instance at url.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, reedstream.Config("ratelimit", "invalid redis url: "+err.Error())
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, reedstream.Config("ratelimit", "redis connection failed: "+err.Error())
	}

	return &RedisStore{client: client, ctx: ctx}, nil
}

func (s *RedisStore) Record(key string, now, windowStart time.Time) (int, error) {
	member := strconv.FormatInt(now.UnixNano(), 10)
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(s.ctx, key, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(s.ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(s.ctx, key)
	pipe.Expire(s.ctx, key, now.Sub(windowStart))
	if _, err := pipe.Exec(s.ctx); err != nil {
		return 0, reedstream.IOError("redis_record", key, err)
	}
	return int(card.Val()), nil
}

// Cleanup is a no-op on RedisStore: Record refreshes each key's EXPIRE
// to the window length, so Redis evicts idle keys itself and there is no
// in-process sweep to run.
func (s *RedisStore) Cleanup(cutoff time.Time) (int, error) {
	return 0, nil
}
