package labels

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/image-analyzer/internal/datastore/entities"
	"github.com/tphakala/image-analyzer/internal/datastore/repository"
	"github.com/tphakala/image-analyzer/internal/errors"
)

type countingMetrics struct {
	created, hits, misses atomic.Int64
}

func (m *countingMetrics) RecordLabelCreated()   { m.created.Add(1) }
func (m *countingMetrics) RecordLabelCacheHit()  { m.hits.Add(1) }
func (m *countingMetrics) RecordLabelCacheMiss() { m.misses.Add(1) }

type failingStore struct{}

func (failingStore) GetOrCreate(context.Context, string) (uint, bool, error) {
	return 0, false, errors.NewStd("database is locked")
}

func (failingStore) NameByID(context.Context, uint) (string, error) {
	return "", errors.NewStd("database is locked")
}

func newSQLiteStore(t *testing.T) (*RepositoryStore, *gorm.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "labels.db")
	db, err := gorm.Open(sqlite.Open(dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Label{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepositoryStore(repository.NewLabelRepository(db)), db
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Cat", "cat"},
		{"  cat  ", "cat"},
		{"\tTraffic Light\n", "traffic light"},
		{"CAFÉ", "café"},
		{"café", "café"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestRegistry_CaseAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	r := NewRegistry(NewMemoryStore())
	ctx := t.Context()

	a, err := r.Resolve(ctx, "Cat")
	require.NoError(t, err)
	b, err := r.Resolve(ctx, " cat ")
	require.NoError(t, err)
	c, err := r.Resolve(ctx, "cat")
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.ID, c.ID)
	assert.True(t, a.Created)
	assert.False(t, b.Created)
	assert.False(t, c.Created)
	assert.Equal(t, "cat", a.Name)
}

func TestRegistry_MonotonicDistinctIDs(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	r := NewRegistry(store)

	names := []string{"person", "car", "bicycle", "dog", "cat"}
	var prev uint
	seen := map[uint]bool{}
	for _, name := range names {
		res, err := r.Resolve(t.Context(), name)
		require.NoError(t, err)
		assert.Greater(t, res.ID, prev, "ids follow first-seen order")
		assert.False(t, seen[res.ID])
		seen[res.ID] = true
		prev = res.ID
	}
	assert.Equal(t, len(names), store.Len())
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	r := NewRegistry(store)

	_, err := r.Resolve(t.Context(), "  \t ")
	require.ErrorIs(t, err, ErrEmptyName)
	assert.Zero(t, store.Len())
}

func TestRegistry_Name(t *testing.T) {
	t.Parallel()

	metrics := &countingMetrics{}
	r := NewRegistry(NewMemoryStore(), WithMetrics(metrics))
	ctx := t.Context()

	res, err := r.Resolve(ctx, "Bicycle")
	require.NoError(t, err)

	name, err := r.Name(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "bicycle", name)
	assert.Equal(t, int64(1), metrics.hits.Load(), "name lookup served from cache")

	_, err = r.Name(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_NameFromStore(t *testing.T) {
	t.Parallel()

	store, _ := newSQLiteStore(t)
	id, _, err := store.GetOrCreate(t.Context(), "umbrella")
	require.NoError(t, err)

	// A fresh registry has an empty cache and reads through to the store
	r := NewRegistry(store)
	name, err := r.Name(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "umbrella", name)

	_, err = r.Name(t.Context(), id+1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_StorageErrorPropagates(t *testing.T) {
	t.Parallel()

	r := NewRegistry(failingStore{})

	_, err := r.Resolve(t.Context(), "cat")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))

	_, err = r.Name(t.Context(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	// Failures are not cached
	_, err = r.Resolve(t.Context(), "cat")
	require.Error(t, err)
}

func TestRegistry_ConcurrentFirstSighting(t *testing.T) {
	t.Parallel()
	t.Attr("component", "labels")

	stores := map[string]func(t *testing.T) (Store, func() int64){
		"memory": func(t *testing.T) (Store, func() int64) {
			s := NewMemoryStore()
			return s, func() int64 { return int64(s.Len()) }
		},
		"sqlite": func(t *testing.T) (Store, func() int64) {
			s, db := newSQLiteStore(t)
			return s, func() int64 {
				var n int64
				require.NoError(t, db.Model(&entities.Label{}).Count(&n).Error)
				return n
			}
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, count := newStore(t)
			metrics := &countingMetrics{}
			r := NewRegistry(store, WithMetrics(metrics))

			const workers = 50
			spellings := []string{"Dog", "dog", " DOG", "dog "}

			var (
				wg       sync.WaitGroup
				creators atomic.Int64
				ids      sync.Map
				failures atomic.Int64
			)
			start := make(chan struct{})
			for i := range workers {
				wg.Go(func() {
					<-start
					res, err := r.Resolve(t.Context(), spellings[i%len(spellings)])
					if err != nil {
						failures.Add(1)
						return
					}
					ids.Store(res.ID, true)
					if res.Created {
						creators.Add(1)
					}
				})
			}
			close(start)
			wg.Wait()

			assert.Zero(t, failures.Load())
			assert.Equal(t, int64(1), creators.Load(), "exactly one caller observes created")
			assert.Equal(t, int64(1), metrics.created.Load())
			assert.Equal(t, int64(1), count(), "one label row for dog")

			distinct := 0
			ids.Range(func(_, _ any) bool { distinct++; return true })
			assert.Equal(t, 1, distinct)
		})
	}
}

func TestRegistry_SharedStoreAcrossRegistries(t *testing.T) {
	t.Parallel()

	// Two registries model two processes over one database
	store, db := newSQLiteStore(t)
	r1 := NewRegistry(store)
	r2 := NewRegistry(store)

	var wg sync.WaitGroup
	results := make([]Resolution, 20)
	for i := range results {
		wg.Go(func() {
			reg := r1
			if i%2 == 1 {
				reg = r2
			}
			res, err := reg.Resolve(t.Context(), fmt.Sprintf("Label-%d", i%3))
			assert.NoError(t, err)
			results[i] = res
		})
	}
	wg.Wait()

	byName := map[string]uint{}
	for _, res := range results {
		if id, ok := byName[res.Name]; ok {
			assert.Equal(t, id, res.ID, "name %s maps to one id", res.Name)
		}
		byName[res.Name] = res.ID
	}

	var n int64
	require.NoError(t, db.Model(&entities.Label{}).Count(&n).Error)
	assert.Equal(t, int64(3), n)
}

// gatedStore blocks GetOrCreate until release is closed and fails with the
// call's context error when that context is already done.
type gatedStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int64
}

func (s *gatedStore) GetOrCreate(ctx context.Context, name string) (uint, bool, error) {
	if s.calls.Add(1) == 1 {
		close(s.entered)
	}
	<-s.release
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	return s.MemoryStore.GetOrCreate(ctx, name)
}

func TestRegistry_FollowerSurvivesCreatorCancel(t *testing.T) {
	t.Parallel()

	store := &gatedStore{
		MemoryStore: NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	r := NewRegistry(store)

	firstCtx, cancel := context.WithCancel(t.Context())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(firstCtx, "Dog")
		firstErr <- err
	}()
	<-store.entered

	type result struct {
		res Resolution
		err error
	}
	second := make(chan result, 1)
	go func() {
		res, err := r.Resolve(context.Background(), "dog")
		second <- result{res, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	// Give the second caller time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(store.release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, uint(1), got.res.ID)
	assert.Equal(t, "dog", got.res.Name)
	assert.Equal(t, 1, store.Len())
}

func TestRegistry_CancelledBeforeLookup(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	r := NewRegistry(store)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := r.Resolve(ctx, "cat")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Len())
}

func TestRegistry_StoreTimeoutBoundsCall(t *testing.T) {
	t.Parallel()

	store := &gatedStore{
		MemoryStore: NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	r := NewRegistry(store, WithStoreTimeout(20*time.Millisecond))
	go func() {
		<-store.entered
		time.Sleep(100 * time.Millisecond)
		close(store.release)
	}()

	_, err := r.Resolve(t.Context(), "cat")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry_RejectedNameIsInvalid(t *testing.T) {
	t.Parallel()

	store, _ := newSQLiteStore(t)
	r := NewRegistry(store)

	_, err := r.Resolve(t.Context(), strings.Repeat("x", 201))
	require.ErrorIs(t, err, ErrInvalidName)
	assert.False(t, errors.IsCategory(err, errors.CategoryDatabase))

	res, err := r.Resolve(t.Context(), strings.Repeat("x", 200))
	require.NoError(t, err)
	assert.True(t, res.Created)
}
