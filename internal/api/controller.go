package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/image-analyzer/internal/analysis"
	"github.com/tphakala/image-analyzer/internal/buildinfo"
	"github.com/tphakala/image-analyzer/internal/datastore/repository"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller holds the dependencies of the JSON handlers.
type Controller struct {
	analysis  *analysis.Service
	labels    repository.LabelRepository
	build     buildinfo.BuildInfo
	db        Pinger
	metrics   http.Handler
	log       logger.Logger
	startTime time.Time
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithBuildInfo sets the version reported by the banner and health endpoints.
func WithBuildInfo(b buildinfo.BuildInfo) ControllerOption {
	return func(c *Controller) { c.build = b }
}

// WithHealthCheck adds db to the health endpoint.
func WithHealthCheck(db Pinger) ControllerOption {
	return func(c *Controller) { c.db = db }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) ControllerOption {
	return func(c *Controller) { c.metrics = h }
}

// WithControllerLogger sets the handler logger.
func WithControllerLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// NewController creates a Controller.
func NewController(svc *analysis.Service, labels repository.LabelRepository, opts ...ControllerOption) *Controller {
	c := &Controller{
		analysis:  svc,
		labels:    labels,
		build:     &buildinfo.Context{},
		log:       logger.NewSlogLogger(nil, logger.LogLevelInfo, nil),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterRoutes mounts all endpoints on e and installs the error handler.
func (c *Controller) RegisterRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = c.httpErrorHandler

	e.GET("/health", c.Health)
	if c.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(c.metrics))
	}

	g := e.Group("/api")
	g.GET("/hello/", c.Hello)
	g.POST("/analyze/", c.Analyze)
	g.GET("/logs/", c.ListLogs)
	g.GET("/logs/:id", c.GetLog)
	g.GET("/labels/", c.ListLabels)
	g.GET("/labels/:id", c.GetLabel)
}

// Hello returns the service banner.
func (c *Controller) Hello(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Hello World from the image analyzer API!",
		"status":  "success",
		"data": map[string]string{
			"version": c.build.GetVersion(),
			"project": c.build.GetProject(),
		},
	})
}

// Health reports liveness and, when configured, database reachability.
func (c *Controller) Health(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	status, code := "healthy", http.StatusOK
	body := map[string]any{
		"version":        c.build.GetVersion(),
		"build_date":     c.build.GetBuildDate(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}
	if c.db != nil {
		if err := c.db.Ping(ctx.Request().Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
			body["database"] = err.Error()
		} else {
			body["database"] = "ok"
		}
	}
	body["status"] = status
	return ctx.JSON(code, body)
}
