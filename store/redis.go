package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// FlagsKeyPrefix namespaces the per-visitor flag sets
	FlagsKeyPrefix = "sprunki:flags:"

	opTimeout = 2 * time.Second
)

// Connect creates a Redis client and verifies connectivity
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}
	return rdb, nil
}

// RedisFlags keeps one visitor's flags in a Redis set so several clients
// can share a server. Members never expire.
type RedisFlags struct {
	rdb    *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisFlags scopes flags to visitor
func NewRedisFlags(rdb *redis.Client, visitor string, logger *zap.Logger) *RedisFlags {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFlags{rdb: rdb, key: FlagsKeyPrefix + visitor, logger: logger}
}

// Has treats an unreachable Redis as "not liked"; the server still counts
// each like, so the worst case is a repeat attempt.
func (r *RedisFlags) Has(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ok, err := r.rdb.SIsMember(ctx, r.key, key).Result()
	if err != nil {
		r.logger.Warn("redis flag lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (r *RedisFlags) Set(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return errors.Wrap(r.rdb.SAdd(ctx, r.key, key).Err(), "redis set flag")
}

// Keys lists the visitor's flags
func (r *RedisFlags) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.rdb.SMembers(ctx, r.key).Result()
	return keys, errors.Wrap(err, "redis list flags")
}
