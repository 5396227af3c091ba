package repository

import (
	"context"

	"github.com/tphakala/image-analyzer/internal/datastore/entities"
)

// LabelRepository provides access to the object_labels table.
// Names passed in are expected to be normalized already.
type LabelRepository interface {
	// GetOrCreate returns the label for name, creating it if needed.
	// created is true only for the caller whose insert won.
	GetOrCreate(ctx context.Context, name string) (label *entities.Label, created bool, err error)

	// GetByID returns ErrLabelNotFound if no label has the id.
	GetByID(ctx context.Context, id uint) (*entities.Label, error)

	// GetByName returns ErrLabelNotFound if no label has the name.
	GetByName(ctx context.Context, name string) (*entities.Label, error)

	// List returns all labels ordered by id.
	List(ctx context.Context) ([]*entities.Label, error)

	Count(ctx context.Context) (int64, error)
}
