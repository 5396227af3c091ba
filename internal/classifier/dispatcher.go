package classifier

import (
	"context"
	"time"

	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/labels"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// Resolver maps detected names to label ids. *labels.Registry implements it.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (labels.Resolution, error)
}

// DispatchMetrics receives one observation per dispatch.
type DispatchMetrics interface {
	RecordDispatch(provider, outcome string, duration time.Duration)
}

// ErrStorage marks dispatch failures caused by the label store.
var ErrStorage = errors.NewStd("label storage unavailable")

// Dispatcher runs one provider per request and normalizes its result.
type Dispatcher struct {
	resolver  Resolver
	providers map[Kind]Provider
	signals   func() Availability
	metrics   DispatchMetrics
	log       logger.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithProvider registers p under p.Kind(), replacing any earlier one.
func WithProvider(p Provider) DispatcherOption {
	return func(d *Dispatcher) { d.providers[p.Kind()] = p }
}

// WithSignals sets the availability source, read once per dispatch.
func WithSignals(fn func() Availability) DispatcherOption {
	return func(d *Dispatcher) { d.signals = fn }
}

// WithDispatchMetrics attaches a metrics sink.
func WithDispatchMetrics(m DispatchMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithDispatchLogger sets the dispatcher logger.
func WithDispatchLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher creates a Dispatcher. Without WithSignals every request goes
// to the local provider.
func NewDispatcher(resolver Resolver, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		resolver:  resolver,
		providers: make(map[Kind]Provider),
		signals:   func() Availability { return Availability{} },
		log:       logger.NewSlogLogger(nil, logger.LogLevelInfo, nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch classifies in with exactly one provider. Backend failures are
// returned as unsuccessful outcomes; the error is non-nil only when ctx
// ends first or the label store fails.
func (d *Dispatcher) Dispatch(ctx context.Context, in ImageInput) (Outcome, error) {
	start := time.Now()

	payload, err := Prepare(in)
	if err != nil {
		out := failed("", ReasonValidation, err.Error())
		d.observe(out, start)
		return out, nil
	}

	av := d.signals()
	kind := Select(av)
	out, err := d.dispatchTo(ctx, kind, av, payload)
	if err != nil {
		reason := "cancelled"
		if errors.Is(err, ErrStorage) {
			reason = ReasonStorage.MetricLabel()
		}
		if d.metrics != nil {
			d.metrics.RecordDispatch(string(kind), reason, time.Since(start))
		}
		return Outcome{}, err
	}
	d.observe(out, start)
	return out, nil
}

func (d *Dispatcher) dispatchTo(ctx context.Context, kind Kind, av Availability, payload *Payload) (Outcome, error) {
	log := d.log.WithContext(ctx).With(logger.String("provider", string(kind)))

	provider, ok := d.providers[kind]
	if !ok {
		return failed(kind, ReasonBackendUnavailable, "no provider registered for "+string(kind)), nil
	}

	log.Debug("dispatching",
		logger.String("input", payload.Kind.String()),
		logger.Int64("size", payload.Size),
		logger.String("format", payload.Format))

	det, err := provider.Classify(ctx, av, payload)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// The provider result is discarded and the registry is left untouched
		return Outcome{}, ctxErr
	}
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			log.Debug("provider returned failure",
				logger.String("reason", string(perr.Reason)),
				logger.String("message", perr.Message))
			return failed(kind, perr.Reason, perr.Message), nil
		}
		return failed(kind, ReasonBackendError, err.Error()), nil
	}

	if det.Score < 0 || det.Score > 1 {
		return failed(kind, ReasonBackendError, "confidence out of range"), nil
	}

	if det.Name == "" {
		if det.ClassID == 0 {
			return failed(kind, ReasonBackendError, "provider returned no label"), nil
		}
		return succeeded(kind, det.ClassID, "", det.Score), nil
	}

	res, err := d.resolver.Resolve(ctx, det.Name)
	if err != nil {
		if errors.Is(err, labels.ErrEmptyName) {
			return failed(kind, ReasonBackendError, "provider returned an empty label"), nil
		}
		if errors.Is(err, labels.ErrInvalidName) {
			log.Warn("provider label rejected", logger.String("label", det.Name), logger.Error(err))
			return failed(kind, ReasonBackendError, "provider returned an invalid label"), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		log.Error("label resolution failed", logger.Error(err))
		return Outcome{}, errors.Join(ErrStorage, err)
	}
	return succeeded(kind, res.ID, res.Name, det.Score), nil
}

func (d *Dispatcher) observe(out Outcome, start time.Time) {
	if d.metrics == nil {
		return
	}
	provider := string(out.Provider)
	if provider == "" {
		provider = "none"
	}
	d.metrics.RecordDispatch(provider, out.Reason.MetricLabel(), time.Since(start))
}
