// Package labels maps free-text object names to stable integer ids.
package labels

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// ErrEmptyName is returned for names that normalize to the empty string.
var ErrEmptyName = errors.NewStd("label name is empty")

// ErrInvalidName is returned when the store refuses a name, such as one
// longer than the name column.
var ErrInvalidName = errors.NewStd("label name is invalid")

// DefaultStoreTimeout bounds a single get-or-create against the store.
const DefaultStoreTimeout = 10 * time.Second

// Metrics receives registry events. observability.ClassifierMetrics implements it.
type Metrics interface {
	RecordLabelCreated()
	RecordLabelCacheHit()
	RecordLabelCacheMiss()
}

// Resolution is the result of resolving one raw name.
type Resolution struct {
	ID      uint
	Name    string // normalized
	Created bool   // true only for the caller that created the label
}

// Registry resolves raw names to label ids. Concurrent resolutions of the
// same normalized name collapse into a single store call, and the store's
// own atomic get-or-create covers other processes sharing the database.
type Registry struct {
	store   Store
	group   singleflight.Group
	cache   *cache.Cache
	metrics Metrics
	log     logger.Logger

	storeTimeout time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithStoreTimeout bounds each store get-or-create call.
func WithStoreTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.storeTimeout = d
		}
	}
}

// NewRegistry creates a Registry over store.
func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		// Labels never change, so entries never expire and no janitor runs
		cache: cache.New(cache.NoExpiration, 0),
		log:   logger.NewSlogLogger(nil, logger.LogLevelInfo, nil),

		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func nameKey(name string) string { return "n:" + name }
func idKey(id uint) string       { return "i:" + strconv.FormatUint(uint64(id), 10) }

// Resolve returns the id for raw, creating a label on first sighting.
func (r *Registry) Resolve(ctx context.Context, raw string) (Resolution, error) {
	name := Normalize(raw)
	if name == "" {
		return Resolution{}, ErrEmptyName
	}

	if v, ok := r.cache.Get(nameKey(name)); ok {
		r.recordCacheHit()
		id, _ := v.(uint)
		return Resolution{ID: id, Name: name}, nil
	}
	r.recordCacheMiss()
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	// The shared store call is detached from the caller that started it, so
	// one cancelled request cannot fail the others waiting on the same name.
	var leader bool
	ch := r.group.DoChan(name, func() (any, error) {
		leader = true
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.storeTimeout)
		defer cancel()

		id, created, err := r.store.GetOrCreate(storeCtx, name)
		if err != nil {
			return nil, err
		}
		r.cache.SetDefault(nameKey(name), id)
		r.cache.SetDefault(idKey(id), name)
		if created {
			if r.metrics != nil {
				r.metrics.RecordLabelCreated()
			}
			r.log.Info("label created",
				logger.Uint("label_id", id),
				logger.String("name", name))
		}
		return Resolution{ID: id, Name: name, Created: created}, nil
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	case result = <-ch:
	}

	if err := result.Err; err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			return Resolution{}, errors.Join(ErrInvalidName, err)
		}
		return Resolution{}, errors.New(err).
			Component("labels").
			Category(errors.CategoryDatabase).
			Context("operation", "resolve").
			Build()
	}

	res, _ := result.Val.(Resolution)
	res.Created = res.Created && leader
	return res, nil
}

// Name returns the normalized name for id, or ErrNotFound.
func (r *Registry) Name(ctx context.Context, id uint) (string, error) {
	if v, ok := r.cache.Get(idKey(id)); ok {
		r.recordCacheHit()
		name, _ := v.(string)
		return name, nil
	}
	r.recordCacheMiss()

	name, err := r.store.NameByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", errors.New(err).
			Component("labels").
			Category(errors.CategoryDatabase).
			Context("operation", "resolve-name").
			Build()
	}
	r.cache.SetDefault(idKey(id), name)
	r.cache.SetDefault(nameKey(name), id)
	return name, nil
}

func (r *Registry) recordCacheHit() {
	if r.metrics != nil {
		r.metrics.RecordLabelCacheHit()
	}
}

func (r *Registry) recordCacheMiss() {
	if r.metrics != nil {
		r.metrics.RecordLabelCacheMiss()
	}
}
