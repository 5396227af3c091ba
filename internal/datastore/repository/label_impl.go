package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tphakala/image-analyzer/internal/datastore/entities"
	"github.com/tphakala/image-analyzer/internal/errors"
)

const maxLabelNameLength = 200

type labelRepository struct {
	db *gorm.DB
}

// NewLabelRepository creates a GORM-backed LabelRepository.
func NewLabelRepository(db *gorm.DB) LabelRepository {
	return &labelRepository{db: db}
}

// GetOrCreate relies on the unique index on name: a losing concurrent insert
// fails with a duplicate key error and re-reads the winner's row.
func (r *labelRepository) GetOrCreate(ctx context.Context, name string) (*entities.Label, bool, error) {
	if strings.TrimSpace(name) == "" || len(name) > maxLabelNameLength {
		return nil, false, errors.Newf("label name must be 1-%d characters", maxLabelNameLength).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	label, err := r.GetByName(ctx, name)
	if err == nil {
		return label, false, nil
	}
	if !errors.Is(err, ErrLabelNotFound) {
		return nil, false, err
	}

	label = &entities.Label{Name: name}
	createErr := r.db.WithContext(ctx).Create(label).Error
	if createErr == nil {
		return label, true, nil
	}

	if !IsDuplicateKey(createErr) {
		return nil, false, storageError(createErr, "create-label")
	}

	winner, findErr := r.GetByName(ctx, name)
	if findErr != nil {
		return nil, false, storageError(createErr, "create-label")
	}
	return winner, false, nil
}

func (r *labelRepository) GetByID(ctx context.Context, id uint) (*entities.Label, error) {
	var label entities.Label
	err := r.db.WithContext(ctx).First(&label, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLabelNotFound
	}
	if err != nil {
		return nil, storageError(err, "get-label-by-id")
	}
	return &label, nil
}

func (r *labelRepository) GetByName(ctx context.Context, name string) (*entities.Label, error) {
	var label entities.Label
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&label).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLabelNotFound
	}
	if err != nil {
		return nil, storageError(err, "get-label-by-name")
	}
	return &label, nil
}

func (r *labelRepository) List(ctx context.Context) ([]*entities.Label, error) {
	var labels []*entities.Label
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&labels).Error; err != nil {
		return nil, storageError(err, "list-labels")
	}
	return labels, nil
}

func (r *labelRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Label{}).Count(&count).Error; err != nil {
		return 0, storageError(err, "count-labels")
	}
	return count, nil
}
