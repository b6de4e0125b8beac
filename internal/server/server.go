// Package server serves rendered pages over HTTP with a byte-bounded
// response cache in front of the render pipeline.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sourcegraph/conc"
	"golang.org/x/text/language"

	"github.com/conneroisu/isorender/internal/cache"
	"github.com/conneroisu/isorender/internal/config"
	"github.com/conneroisu/isorender/internal/devreload"
	"github.com/conneroisu/isorender/internal/errors"
	"github.com/conneroisu/isorender/internal/logging"
	"github.com/conneroisu/isorender/internal/metrics"
	"github.com/conneroisu/isorender/internal/render"
	"github.com/conneroisu/isorender/internal/version"
)

// Internal endpoint paths.
const (
	HealthPath  = "/_isorender/health"
	VersionPath = "/_isorender/version"
	CachePath   = "/_isorender/cache"
	ReloadPath  = "/_isorender/ws"
	MetricsPath = "/metrics"
)

// Options carries the dependencies a Server does not build itself.
type Options struct {
	Routes  []Route
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Server is the SSR HTTP server.
type Server struct {
	cfg      *config.Config
	logger   logging.Logger
	errors   *errors.ErrorHandler
	metrics  *metrics.Metrics
	cache    *cache.Cache[cachedResponse]
	renderer *render.Renderer
	hub      *devreload.Hub
	reloader *devreload.Reloader
	locales  []language.Tag
	matcher  language.Matcher
	build    version.BuildInfo
	router   chi.Router

	mu         sync.Mutex
	httpServer *http.Server
}

// New wires the cache, renderer, metrics and, in development mode, the
// reload hub, then builds the router.
func New(cfg *config.Config, opts Options) (*Server, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(metrics.Config{})
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger.WithComponent("server"),
		errors:  errors.NewErrorHandler(logger.WithComponent("server")),
		metrics: m,
		locales: cfg.I18n.Tags(),
		build:   version.Get(),
	}
	s.matcher = language.NewMatcher(s.locales)

	if cfg.Cache.Enabled {
		s.cache = cache.New[cachedResponse](cfg.Cache.CapacityBytes)
		s.cache.OnEvict(func(cache.Entry[cachedResponse]) {
			m.CacheEvicted(1)
		})
	}

	s.renderer = render.New(render.Options{
		MaxRounds:   cfg.Render.MaxRounds,
		Timeout:     cfg.Render.Timeout,
		Concurrency: cfg.Render.Concurrency,
		Retry:       retryOptions(cfg.Render),
		Observer:    m,
	}, logger)

	if cfg.Development.Enabled && cfg.Development.HotReload {
		s.hub = devreload.NewHub(cfg.Server.AllowedOrigins, logger)
		clearer := devreload.ClearFunc(func() { s.clearCache() })
		reloader, err := devreload.NewReloader(cfg.Development, s.hub, clearer, logger)
		if err != nil {
			return nil, fmt.Errorf("starting dev reload: %w", err)
		}
		s.reloader = reloader
	}

	s.router = s.routes(opts.Routes)
	return s, nil
}

func (s *Server) routes(routes []Route) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)

	r.Get(HealthPath, s.handleHealth)
	r.Get(VersionPath, s.handleVersion)
	r.Get(CachePath, s.handleCacheStats)
	r.Delete(CachePath, s.handleCacheClear)
	r.Method(http.MethodGet, MetricsPath, s.metrics.Handler())
	if s.hub != nil {
		r.Method(http.MethodGet, ReloadPath, s.hub)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.negotiateLocale)
		r.Use(s.responseCache)
		for _, route := range routes {
			h := s.pageHandler(route.Page)
			r.Get(route.Pattern, h)
			r.Head(route.Pattern, h)
		}
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			s.writeError(w, r, errors.NotFound("page not found").WithContext("path", r.URL.Path))
		})
	})

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	bgCtx, cancel := context.WithCancel(ctx)
	var background conc.WaitGroup
	defer background.Wait()
	defer cancel()

	if s.hub != nil {
		background.Go(func() { s.hub.Run(bgCtx) })
	}
	if s.reloader != nil {
		background.Go(func() {
			if err := s.reloader.Run(bgCtx); err != nil {
				s.logger.Error(bgCtx, err, "Dev reload stopped")
			}
		})
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	s.logger.Info(ctx, "Server listening",
		"addr", ln.Addr().String(),
		"version", s.build.Version,
		"cache_bytes", s.cfg.Cache.CapacityBytes,
		"dev", s.cfg.Development.Enabled,
	)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded
// by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "Shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
