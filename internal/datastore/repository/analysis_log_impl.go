package repository

import (
	"context"
	"math"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tphakala/image-analyzer/internal/datastore/entities"
	"github.com/tphakala/image-analyzer/internal/errors"
)

type analysisLogRepository struct {
	db *gorm.DB
}

// NewAnalysisLogRepository creates a GORM-backed AnalysisLogRepository.
func NewAnalysisLogRepository(db *gorm.DB) AnalysisLogRepository {
	return &analysisLogRepository{db: db}
}

func (r *analysisLogRepository) Append(ctx context.Context, entry *entities.AnalysisLog) (uint, error) {
	if entry == nil {
		return 0, ErrInvalidInput
	}
	if utf8.RuneCountInString(entry.ImagePath) > entities.MaxImagePathLength {
		return 0, errors.New(ErrInvalidInput).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("image_path_length", utf8.RuneCountInString(entry.ImagePath)).
			Build()
	}
	entry.Message = entities.TruncateMessage(entry.Message)
	if entry.Confidence != nil {
		rounded := math.Round(*entry.Confidence*10000) / 10000
		entry.Confidence = &rounded
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, storageError(err, "append-analysis-log")
	}
	return entry.ID, nil
}

func (r *analysisLogRepository) Get(ctx context.Context, id uint) (*entities.AnalysisLog, error) {
	var entry entities.AnalysisLog
	err := r.db.WithContext(ctx).First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnalysisLogNotFound
	}
	if err != nil {
		return nil, storageError(err, "get-analysis-log")
	}
	return &entry, nil
}

func (r *analysisLogRepository) List(ctx context.Context, filter AnalysisLogFilter) ([]*entities.AnalysisLog, int64, error) {
	filter.Normalize()

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&entities.AnalysisLog{})
		if filter.Classification != nil {
			q = q.Where("classification = ?", *filter.Classification)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, storageError(err, "count-analysis-logs")
	}

	var entries []*entities.AnalysisLog
	err := scoped().
		Order("created_at DESC").
		Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, storageError(err, "list-analysis-logs")
	}
	return entries, total, nil
}
