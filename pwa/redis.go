package pwa

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces cache hashes; each named cache is one hash
const RedisKeyPrefix = "sprunki-pwa:"

// RedisCache shares cached responses between server instances
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (r *RedisCache) Get(ctx context.Context, cache, key string) (*Entry, bool, error) {
	raw, err := r.rdb.HGet(ctx, RedisKeyPrefix+cache, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis cache get")
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// unreadable entries are treated as a miss and overwritten later
		return nil, false, nil
	}
	return &e, true, nil
}

func (r *RedisCache) Put(ctx context.Context, cache, key string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	return errors.Wrap(r.rdb.HSet(ctx, RedisKeyPrefix+cache, key, raw).Err(), "redis cache put")
}

func (r *RedisCache) Names(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		names  []string
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, RedisKeyPrefix+"*", 200).Result()
		if err != nil {
			return names, errors.Wrap(err, "redis scan caches")
		}
		for _, k := range keys {
			names = append(names, strings.TrimPrefix(k, RedisKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *RedisCache) Delete(ctx context.Context, cache string) error {
	return errors.Wrap(r.rdb.Del(ctx, RedisKeyPrefix+cache).Err(), "redis cache delete")
}
