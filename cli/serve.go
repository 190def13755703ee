package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/config"
	"github.com/njyeung/sprunki/logging"
	"github.com/njyeung/sprunki/pwa"
	"github.com/njyeung/sprunki/server"
	"github.com/njyeung/sprunki/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the comment widget and the offline cache proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := logging.NewConsole(a.cfg.Log.Dir, a.cfg.Log.Level)
			if err != nil {
				return err
			}
			defer closeLog()
			defer logger.Sync()
			return serve(a.cfg, logger)
		},
	}
}

func newCache(ctx context.Context, cfg *config.Config) (pwa.Cache, func() error, error) {
	if cfg.PWA.Cache != config.FlagsRedis {
		return pwa.NewMemoryCache(), nop, nil
	}
	rdb, err := store.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return pwa.NewRedisCache(rdb), rdb.Close, nil
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	flags, closeFlags, err := visitorFlags(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFlags()

	cache, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	proxy, err := pwa.New(pwa.Options{
		Origin:  cfg.Server.Origin,
		Version: cfg.PWA.Version,
		Static:  cfg.PWA.Static,
		Cache:   cache,
		Logger:  logger.Named("pwa"),
	})
	if err != nil {
		return err
	}

	// an unreachable origin must not keep the widget from serving
	if err := proxy.Install(ctx); err != nil {
		logger.Warn("precache incomplete", zap.Error(err))
	}
	if deleted, err := proxy.Activate(ctx); err != nil {
		logger.Warn("old caches not cleared", zap.Error(err))
	} else if len(deleted) > 0 {
		logger.Info("old caches cleared", zap.Strings("caches", deleted))
	}

	srv := server.New(server.Options{
		Addr:           cfg.Server.Addr,
		API:            backend.NewClient(cfg.APIBase, backend.WithLogger(logger.Named("api"))),
		Flags:          flags,
		Fallback:       proxy,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Debug:          cfg.Server.Debug,
		Logger:         logger.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
