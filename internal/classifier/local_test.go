package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_DeterministicSuccess(t *testing.T) {
	t.Parallel()

	// latency, success draw, confidence draw
	rng := &sequenceRand{floats: []float64{0.5, 0.1, 0.4}, ints: []int{2}}
	var slept time.Duration
	p := NewLocalProvider(DefaultLocalConfig(),
		WithRandomSource(rng),
		WithSleeper(func(_ context.Context, d time.Duration) error {
			slept = d
			return nil
		}))

	det, err := p.Classify(t.Context(), Availability{}, &Payload{})
	require.NoError(t, err)
	assert.Equal(t, uint(3), det.ClassID)
	assert.InDelta(t, 0.80, det.Score, 1e-9)
	assert.Empty(t, det.Name)
	assert.Equal(t, 750*time.Millisecond, slept)
}

func TestLocalProvider_DeterministicFailure(t *testing.T) {
	t.Parallel()

	rng := &sequenceRand{floats: []float64{0.0, 0.85}, ints: []int{0}}
	p := NewLocalProvider(DefaultLocalConfig(), WithRandomSource(rng), WithSleeper(noSleep))

	_, err := p.Classify(t.Context(), Availability{}, &Payload{})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonBackendError, perr.Reason)
	assert.Equal(t, LocalFailureCode, perr.Message)
}

func TestLocalProvider_Distribution(t *testing.T) {
	t.Parallel()

	const trials = 4000
	var latencies []time.Duration
	p := NewLocalProvider(DefaultLocalConfig(), WithSleeper(func(_ context.Context, d time.Duration) error {
		latencies = append(latencies, d)
		return nil
	}))

	successes := 0
	classes := make(map[uint]int)
	for range trials {
		det, err := p.Classify(t.Context(), Availability{}, &Payload{})
		if err != nil {
			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, LocalFailureCode, perr.Message)
			continue
		}
		successes++
		classes[det.ClassID]++
		assert.GreaterOrEqual(t, det.Score, 0.70)
		assert.LessOrEqual(t, det.Score, 0.95)
	}

	rate := float64(successes) / trials
	assert.InDelta(t, 0.8, rate, 0.05, "success rate")
	assert.Len(t, classes, 5)
	for class := range classes {
		assert.GreaterOrEqual(t, class, uint(1))
		assert.LessOrEqual(t, class, uint(5))
	}
	for _, d := range latencies {
		assert.GreaterOrEqual(t, d, 300*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestLocalProvider_RealLatency(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}
	t.Parallel()

	p := NewLocalProvider(DefaultLocalConfig())
	start := time.Now()
	_, _ = p.Classify(t.Context(), Availability{}, &Payload{})
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 1500*time.Millisecond)
}

func TestLocalProvider_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	p := NewLocalProvider(DefaultLocalConfig())
	_, err := p.Classify(ctx, Availability{}, &Payload{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalProvider_Defaults(t *testing.T) {
	t.Parallel()

	p := NewLocalProvider(LocalConfig{SuccessRate: 1, MinLatency: time.Second, MaxLatency: 0})
	assert.Equal(t, 5, p.cfg.ClassCount)
	assert.Equal(t, time.Second, p.cfg.MaxLatency)
	assert.Equal(t, time.Second, p.latency())
}
