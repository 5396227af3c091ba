package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/image-analyzer/internal/api/middleware"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
	"github.com/tphakala/image-analyzer/internal/observability/metrics"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	config     *Config
	controller *Controller
	metrics    *metrics.HTTPMetrics
	log        logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithController sets the handlers served by the server.
func WithController(c *Controller) ServerOption {
	return func(s *Server) { s.controller = c }
}

// WithMetrics enables per-request metrics.
func WithMetrics(m *metrics.HTTPMetrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// New creates a Server from settings. A Controller is required.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, errors.New(fmt.Errorf("invalid server configuration: %w", err)).
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Server{config: config}
	for _, opt := range opts {
		opt(s)
	}
	if s.controller == nil {
		return nil, errors.Newf("api server requires a controller").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.log == nil {
		s.log = s.controller.log
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.controller.RegisterRoutes(s.echo)

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("debug", config.Debug))

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewTraceID())
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics))
	}
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		return c.Path() == "/health" || c.Path() == "/metrics"
	}))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))

	if s.config.RequestTimeout > 0 {
		s.echo.Use(echomw.ContextTimeout(s.config.RequestTimeout))
	}
}

// Start serves requests and blocks until the server is shut down.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.log.Info("Starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting at most the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("Server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}
