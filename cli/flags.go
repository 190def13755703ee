package cli

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/njyeung/sprunki/comments"
	"github.com/njyeung/sprunki/config"
	"github.com/njyeung/sprunki/server"
	"github.com/njyeung/sprunki/store"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func nop() error { return nil }

// openFlags returns the like flags of the local user
func openFlags(ctx context.Context, cfg *config.Config, logger *zap.Logger) (comments.FlagStore, func() error, error) {
	switch cfg.Flags.Backend {
	case config.FlagsMemory:
		return comments.NewMemoryFlags(), nop, nil

	case config.FlagsFile:
		f, err := store.OpenFile(cfg.Flags.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("like flags loaded", zap.String("path", cfg.Flags.Path), zap.Int("count", len(f.Keys())))
		return f, nop, nil

	case config.FlagsRedis:
		if cfg.VisitorID == "" {
			return nil, nil, errors.New("visitor_id is required when flags.backend is redis")
		}
		rdb, err := store.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisFlags(rdb, cfg.VisitorID, logger), rdb.Close, nil
	}
	return nil, nil, errors.Errorf("unknown flags.backend %q", cfg.Flags.Backend)
}

// visitorFlags returns per-visitor flag stores for the server. Stores are
// opened on first use and cached.
func visitorFlags(ctx context.Context, cfg *config.Config, logger *zap.Logger) (server.FlagsFunc, func() error, error) {
	switch cfg.Flags.Backend {
	case config.FlagsMemory:
		return cachedFlags(func(string) (comments.FlagStore, error) {
			return comments.NewMemoryFlags(), nil
		}, logger), nop, nil

	case config.FlagsFile:
		dir := filepath.Join(filepath.Dir(cfg.Flags.Path), "visitors")
		return cachedFlags(func(visitor string) (comments.FlagStore, error) {
			if _, err := uuid.Parse(visitor); err != nil {
				return nil, errors.Errorf("bad visitor id %q", visitor)
			}
			return store.OpenFile(filepath.Join(dir, visitor+".yaml"))
		}, logger), nop, nil

	case config.FlagsRedis:
		rdb, err := store.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisFlags(rdb, logger), rdb.Close, nil
	}
	return nil, nil, errors.Errorf("unknown flags.backend %q", cfg.Flags.Backend)
}

func redisFlags(rdb *redis.Client, logger *zap.Logger) server.FlagsFunc {
	return func(visitor string) comments.FlagStore {
		return store.NewRedisFlags(rdb, visitor, logger)
	}
}

// cachedFlags opens each visitor's store once. A store that cannot be
// opened falls back to memory for this process.
func cachedFlags(open func(visitor string) (comments.FlagStore, error), logger *zap.Logger) server.FlagsFunc {
	var mu sync.Mutex
	stores := make(map[string]comments.FlagStore)

	return func(visitor string) comments.FlagStore {
		mu.Lock()
		defer mu.Unlock()
		if s, ok := stores[visitor]; ok {
			return s
		}
		s, err := open(visitor)
		if err != nil {
			logger.Warn("visitor flags unavailable, keeping them in memory", zap.String("visitor", visitor), zap.Error(err))
			s = comments.NewMemoryFlags()
		}
		stores[visitor] = s
		return s
	}
}
