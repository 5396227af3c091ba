package repository

import (
	"context"

	"github.com/tphakala/image-analyzer/internal/datastore/entities"
)

// Pagination defaults for log listing
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AnalysisLogFilter selects a page of log entries, newest first.
type AnalysisLogFilter struct {
	Page           int   // 1-based, values below 1 mean 1
	PageSize       int   // 0 means DefaultPageSize, capped at MaxPageSize
	Classification *uint // optional label id
}

// Normalize applies paging defaults and bounds in place.
func (f *AnalysisLogFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// AnalysisLogRepository provides access to the ai_analysis_log table.
type AnalysisLogRepository interface {
	// Append stores entry and returns its assigned id.
	Append(ctx context.Context, entry *entities.AnalysisLog) (uint, error)

	// Get returns ErrAnalysisLogNotFound if no entry has the id.
	Get(ctx context.Context, id uint) (*entities.AnalysisLog, error)

	// List returns one page of entries and the total matching count.
	List(ctx context.Context, filter AnalysisLogFilter) ([]*entities.AnalysisLog, int64, error)
}
