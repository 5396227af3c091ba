package classifier

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeProvider counts calls and delegates to fn.
type fakeProvider struct {
	kind  Kind
	calls atomic.Int32
	fn    func(ctx context.Context, av Availability, p *Payload) (Detection, error)
}

func (f *fakeProvider) Kind() Kind { return f.kind }

func (f *fakeProvider) Classify(ctx context.Context, av Availability, p *Payload) (Detection, error) {
	f.calls.Add(1)
	return f.fn(ctx, av, p)
}

func returning(det Detection, err error) func(context.Context, Availability, *Payload) (Detection, error) {
	return func(context.Context, Availability, *Payload) (Detection, error) { return det, err }
}

// sequenceRand replays fixed values; IntN returns ints modulo n.
type sequenceRand struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
	fi, ii int
}

func (s *sequenceRand) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	return v
}

func (s *sequenceRand) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.ints[s.ii%len(s.ints)] % n
	s.ii++
	return v
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// testPNG returns a small valid PNG.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type recordingMetrics struct {
	mu   sync.Mutex
	seen []string
}

func (m *recordingMetrics) RecordDispatch(provider, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, provider+"/"+outcome)
}

func (m *recordingMetrics) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, testPNG(t), 0o600))
	return path
}
