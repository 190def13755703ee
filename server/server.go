package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/comments"
	"github.com/njyeung/sprunki/page"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	htmlContentType = "text/html; charset=utf-8"

	// maxRevealPages caps the ?pages= parameter of the widget route
	maxRevealPages = comments.FetchSize / comments.RevealSize
)

// FlagsFunc returns the like flags of one visitor
type FlagsFunc func(visitor string) comments.FlagStore

// Options configures a Server
type Options struct {
	Addr           string
	API            backend.Backend
	Flags          FlagsFunc    // nil keeps flags in memory per request
	Fallback       http.Handler // everything not routed, usually the PWA proxy
	AllowedOrigins []string     // empty allows any origin
	Debug          bool
	Logger         *zap.Logger
}

// Server renders the comment widget over HTTP
type Server struct {
	router *gin.Engine
	srv    *http.Server
	api    backend.Backend
	flags  FlagsFunc
	logger *zap.Logger
}

// New builds the router
func New(opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		api:    opts.API,
		flags:  opts.Flags,
		logger: opts.Logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(Logger(opts.Logger))
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	router.Use(Visitor())

	router.GET("/healthz", s.healthz)
	router.GET("/widget/*article", s.widget)
	router.GET("/widget-stats/*article", s.widgetStats)

	if opts.Fallback != nil {
		router.NoRoute(gin.WrapH(opts.Fallback))
	} else {
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
		})
	}

	s.router = router
	s.srv = &http.Server{Addr: opts.Addr, Handler: router}
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", "X-Cache", requestIDHeader},
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
		return cfg
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	cfg.AllowOriginFunc = func(origin string) bool { return allowed[origin] }
	return cfg
}

// Router exposes the handler, mostly for tests
func (s *Server) Router() *gin.Engine { return s.router }

// ListenAndServe blocks until the server stops
func (s *Server) ListenAndServe() error {
	s.logger.Info("server starting", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// widget renders stats, the first revealed window and the load-more button.
// ?sort= picks the order, ?pages= reveals more windows of the first server page.
func (s *Server) widget(c *gin.Context) {
	ctrl := s.controller(c)
	ctx := c.Request.Context()

	if err := ctrl.Load(ctx); err != nil && ctrl.Snapshot().Err != nil {
		s.fail(c, err)
		return
	}

	pages, _ := strconv.Atoi(c.DefaultQuery("pages", "1"))
	pages = min(max(pages, 1), maxRevealPages)
	for i := 1; i < pages; i++ {
		if !ctrl.Tree().RevealNextPage() {
			break
		}
	}

	c.Data(http.StatusOK, htmlContentType, []byte(ctrl.Snapshot().HTML()))
}

func (s *Server) widgetStats(c *gin.Context) {
	stats, err := s.api.GetStats(c.Request.Context(), c.Param("article"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(comments.RenderStats(stats)))
}

func (s *Server) controller(c *gin.Context) *page.Controller {
	var flags comments.FlagStore
	if s.flags != nil {
		flags = s.flags(VisitorID(c))
	}
	return page.New(s.api, page.Options{
		ArticleURL: c.Param("article"),
		Sort:       c.Query("sort"),
		Flags:      flags,
		Logger:     s.logger,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusBadGateway
	var serverErr *backend.ServerError
	if errors.As(err, &serverErr) && serverErr.Status >= 400 && serverErr.Status < 500 {
		status = serverErr.Status
	}
	s.logger.Warn("widget render failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.Data(status, htmlContentType, []byte(comments.Render(
		comments.El("p", comments.A("class", "comments-error"), comments.Text(backend.UserMessage(err))),
	)))
}
