package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an API error response. The correlation id is the
// request's trace id when one is set.
func NewErrorResponse(ctx context.Context, err error, message string, code int) *ErrorResponse {
	correlationID := logger.TraceIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// HandleError logs err and writes an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(ctx.Request().Context(), err, message, code)

	fields := []logger.Field{
		logger.String("path", ctx.Path()),
		logger.String("ip", ctx.RealIP()),
		logger.Int("code", code),
		logger.String("message", message),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	log := c.log.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Debug("API error", fields...)
	}

	return ctx.JSON(code, resp)
}

// httpErrorHandler renders framework errors such as unknown routes and
// oversized bodies in the ErrorResponse shape.
func (c *Controller) httpErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}
	// Bodies over the server limit are oversized images to the client
	if code == http.StatusRequestEntityTooLarge {
		code = http.StatusBadRequest
		message = classifier.MsgImageTooLarge
	}
	if writeErr := c.HandleError(ctx, err, message, code); writeErr != nil {
		c.log.Warn("failed to write error response", logger.Error(writeErr))
	}
}
