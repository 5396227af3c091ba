package labels

import (
	"context"
	"sync"

	"github.com/tphakala/image-analyzer/internal/datastore/repository"
	"github.com/tphakala/image-analyzer/internal/errors"
)

// ErrNotFound is returned when no label has the requested id.
var ErrNotFound = errors.NewStd("label not found")

// Store persists the name to id mapping. Implementations must make
// GetOrCreate atomic per name.
type Store interface {
	GetOrCreate(ctx context.Context, name string) (id uint, created bool, err error)
	NameByID(ctx context.Context, id uint) (string, error)
}

// RepositoryStore adapts a database LabelRepository to Store.
type RepositoryStore struct {
	repo repository.LabelRepository
}

// NewRepositoryStore wraps repo.
func NewRepositoryStore(repo repository.LabelRepository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) GetOrCreate(ctx context.Context, name string) (uint, bool, error) {
	label, created, err := s.repo.GetOrCreate(ctx, name)
	if err != nil {
		return 0, false, err
	}
	return label.ID, created, nil
}

func (s *RepositoryStore) NameByID(ctx context.Context, id uint) (string, error) {
	label, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrLabelNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return label.Name, nil
}

// MemoryStore is an in-process Store guarded by a single mutex.
// Ids start at 1 and follow first-seen order.
type MemoryStore struct {
	mu    sync.Mutex
	ids   map[string]uint
	names []string // names[id-1]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]uint)}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, name string) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.ids[name]; ok {
		return id, false, nil
	}
	s.names = append(s.names, name)
	id := uint(len(s.names))
	s.ids[name] = id
	return id, true, nil
}

func (s *MemoryStore) NameByID(_ context.Context, id uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 || int(id) > len(s.names) {
		return "", ErrNotFound
	}
	return s.names[id-1], nil
}

// Len returns the number of labels.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}
