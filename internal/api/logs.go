package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/image-analyzer/internal/analysis"
	"github.com/tphakala/image-analyzer/internal/datastore/repository"
	"github.com/tphakala/image-analyzer/internal/errors"
)

// LogResponse is one stored analysis record.
type LogResponse struct {
	ID                 uint      `json:"id"`
	ImagePath          string    `json:"image_path"`
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	FailureReason      string    `json:"failure_reason,omitempty"`
	Classification     *uint     `json:"classification"`
	ClassificationName *string   `json:"classification_name"`
	Confidence         *string   `json:"confidence"`
	RequestTimestamp   time.Time `json:"request_timestamp"`
	ResponseTimestamp  time.Time `json:"response_timestamp"`
	ProcessingTimeMs   int64     `json:"processing_time_ms"`
	CreatedAt          time.Time `json:"created_at"`
}

// Pagination describes the page returned by ListLogs.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
	PageSize    int   `json:"page_size"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// LogsResponse is the body of GET /api/logs/.
type LogsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Logs       []LogResponse `json:"logs"`
		Pagination Pagination    `json:"pagination"`
	} `json:"data"`
}

// ListLogs returns a page of analysis records, newest first.
func (c *Controller) ListLogs(ctx echo.Context) error {
	filter, err := parseLogFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	entries, total, err := c.analysis.ListLogs(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to retrieve logs", http.StatusInternalServerError)
	}
	filter.Normalize()

	var resp LogsResponse
	resp.Success = true
	resp.Data.Logs = make([]LogResponse, 0, len(entries))
	for i := range entries {
		resp.Data.Logs = append(resp.Data.Logs, toLogResponse(&entries[i]))
	}
	resp.Data.Pagination = paginate(filter.Page, filter.PageSize, total)
	return ctx.JSON(http.StatusOK, resp)
}

// GetLog returns one analysis record.
func (c *Controller) GetLog(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid log ID", http.StatusBadRequest)
	}

	entry, err := c.analysis.GetLog(ctx.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrAnalysisLogNotFound):
		return c.HandleError(ctx, err, "Log not found", http.StatusNotFound)
	case err != nil:
		return c.HandleError(ctx, err, "Failed to retrieve log", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    toLogResponse(entry),
	})
}

func parseLogFilter(ctx echo.Context) (repository.AnalysisLogFilter, error) {
	var filter repository.AnalysisLogFilter
	if v := ctx.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, errors.NewStd("Invalid page parameter")
		}
		filter.Page = n
	}
	if v := ctx.QueryParam("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, errors.NewStd("Invalid page_size parameter")
		}
		filter.PageSize = n
	}
	if v := ctx.QueryParam("classification"); v != "" {
		id, err := parseID(v)
		if err != nil {
			return filter, errors.NewStd("Invalid classification parameter")
		}
		filter.Classification = &id
	}
	return filter, nil
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, errors.NewStd("id must be a positive integer")
	}
	return uint(n), nil
}

// paginate computes page metadata. An empty result still has one page.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	totalPages = max(totalPages, 1)
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		PageSize:    pageSize,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

func toLogResponse(e *analysis.LogEntry) LogResponse {
	resp := LogResponse{
		ID:                e.ID,
		ImagePath:         e.ImagePath,
		Success:           e.Success,
		Message:           e.Message,
		FailureReason:     e.FailureReason,
		Classification:    e.Classification,
		RequestTimestamp:  e.RequestTimestamp,
		ResponseTimestamp: e.ResponseTimestamp,
		ProcessingTimeMs:  e.ProcessingTime().Milliseconds(),
		CreatedAt:         e.CreatedAt,
	}
	if e.ClassificationName != "" {
		name := e.ClassificationName
		resp.ClassificationName = &name
	}
	if e.Confidence != nil {
		s := strconv.FormatFloat(*e.Confidence, 'f', 4, 64)
		resp.Confidence = &s
	}
	return resp
}
