package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/image-analyzer/internal/observability/metrics"
)

// NewMetrics records request counts and latency by matched route.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			m.RequestStarted()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RecordRequest(c.Request().Method, route, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
