// Package http serves novena content over a read-only JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/novenad/internal/content"
	"github.com/fyrsmithlabs/novenad/internal/expansion"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides the novena HTTP API.
type Server struct {
	echo     *echo.Echo
	snapshot *content.Snapshot
	engine   *expansion.Engine
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// CacheMaxAge sets Cache-Control on successful content responses.
	// Zero omits the header.
	CacheMaxAge time.Duration

	// Gatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Metrics records request metrics. Nil uses the global meter provider.
	Metrics *HTTPMetrics
}

// NewServer creates a server over an immutable content snapshot.
func NewServer(snapshot *content.Snapshot, engine *expansion.Engine, logger *zap.Logger, cfg *Config) (*Server, error) {
	if snapshot == nil || snapshot.Store == nil || snapshot.Registry == nil {
		return nil, fmt.Errorf("content snapshot cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("expansion engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewHTTPMetrics(logger)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(cfg.Metrics.MetricsMiddleware())
	e.Use(requestLogger(logger))

	s := &Server{
		echo:     e,
		snapshot: snapshot,
		engine:   engine,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	api := s.echo.Group("", s.cacheControl)
	api.GET("/novenas", s.handleListNovenas)
	api.GET("/novenas/:id", s.handleGetNovena)
	api.GET("/novenas/:id/dias/:dia", s.handleGetDay)
	api.GET("/texts/global", s.handleListGlobalTexts)
	api.GET("/texts/global/:key", s.handleGetGlobalText)
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	}
}

// cacheControl marks responses cacheable. Content never changes while the
// process runs. The error handler drops the header again.
func (s *Server) cacheControl(next echo.HandlerFunc) echo.HandlerFunc {
	if s.config.CacheMaxAge <= 0 {
		return next
	}
	value := "public, max-age=" + strconv.Itoa(int(s.config.CacheMaxAge.Seconds()))
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderCacheControl, value)
		return next(c)
	}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
