package classifier

import (
	"context"
	"math/rand/v2"
	"time"
)

// LocalFailureCode is the message of every synthetic failure.
const LocalFailureCode = "Error:E50012"

// Synthetic confidence bounds.
const (
	localMinConfidence = 0.70
	localMaxConfidence = 0.95
)

// LocalConfig configures the synthetic generator.
type LocalConfig struct {
	SuccessRate float64
	MinLatency  time.Duration
	MaxLatency  time.Duration
	ClassCount  int
}

// DefaultLocalConfig returns the generator's standard behaviour.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		SuccessRate: 0.8,
		MinLatency:  300 * time.Millisecond,
		MaxLatency:  1200 * time.Millisecond,
		ClassCount:  5,
	}
}

// RandomSource supplies the generator's randomness.
type RandomSource interface {
	Float64() float64 // uniform in [0, 1)
	IntN(n int) int   // uniform in [0, n)
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// LocalProvider produces synthetic classifications after a simulated delay.
type LocalProvider struct {
	cfg   LocalConfig
	rng   RandomSource
	sleep func(ctx context.Context, d time.Duration) error
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithRandomSource replaces the default goroutine-safe global source.
func WithRandomSource(r RandomSource) LocalOption {
	return func(p *LocalProvider) { p.rng = r }
}

// WithSleeper replaces the latency simulation.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) LocalOption {
	return func(p *LocalProvider) { p.sleep = fn }
}

// NewLocalProvider creates a LocalProvider. A ClassCount below 1 takes the default.
func NewLocalProvider(cfg LocalConfig, opts ...LocalOption) *LocalProvider {
	def := DefaultLocalConfig()
	if cfg.ClassCount < 1 {
		cfg.ClassCount = def.ClassCount
	}
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	p := &LocalProvider{cfg: cfg, rng: globalRand{}, sleep: sleepContext}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kind implements Provider.
func (p *LocalProvider) Kind() Kind { return KindLocal }

// Classify implements Provider. The image content is not inspected.
func (p *LocalProvider) Classify(ctx context.Context, _ Availability, _ *Payload) (Detection, error) {
	if err := p.sleep(ctx, p.latency()); err != nil {
		return Detection{}, err
	}

	if p.rng.Float64() >= p.cfg.SuccessRate {
		return Detection{}, backendError(LocalFailureCode, nil)
	}

	class := uint(p.rng.IntN(p.cfg.ClassCount) + 1)
	confidence := localMinConfidence + p.rng.Float64()*(localMaxConfidence-localMinConfidence)
	return Detection{ClassID: class, Score: roundConfidence(confidence)}, nil
}

func (p *LocalProvider) latency() time.Duration {
	span := p.cfg.MaxLatency - p.cfg.MinLatency
	if span <= 0 {
		return p.cfg.MinLatency
	}
	return p.cfg.MinLatency + time.Duration(p.rng.Float64()*float64(span))
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
