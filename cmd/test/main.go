// Command test serves a seeded in-memory comment API so the widget and the
// TUI can be tried without the real site:
//
//	go run ./cmd/test -addr :5000 -article /sprunki-phase-4 -count 60
//	sprunki --config dev.yaml tui   # with api_base: http://localhost:5000/api/comments
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/logging"
	"github.com/njyeung/sprunki/server"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	article := flag.String("article", "/sprunki-phase-4", "article the sample comments belong to")
	count := flag.Int("count", 60, "number of sample comments")
	level := flag.String("log-level", "debug", "log level")
	flag.Parse()

	logger, closeLog, err := logging.NewConsole("", *level)
	if err != nil {
		panic(err)
	}
	defer closeLog()
	defer logger.Sync()

	mem := backend.NewMemory()
	mem.Seed(*article, backend.SampleComments(*count, time.Now())...)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(server.RequestID())
	router.Use(server.Logger(logger.Named("http")))
	backend.MountAPI(router.Group(backend.DefaultAPIBase), mem)

	srv := &http.Server{Addr: *addr, Handler: router}
	go func() {
		logger.Info("mock comment api starting",
			zap.String("addr", *addr),
			zap.String("article", *article),
			zap.Int("comments", *count),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
