package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		av   Availability
		want Kind
	}{
		{"nothing configured", Availability{}, KindLocal},
		{"mock only", Availability{MockEndpoint: "http://mock"}, KindMock},
		{"vision only", Availability{VisionCredentials: "/key.json"}, KindVision},
		{"vision wins over mock", Availability{VisionCredentials: "/key.json", MockEndpoint: "http://mock"}, KindVision},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Select(tt.av), tt.name)
	}
}

func TestPickTop(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, pickTop(nil))
	assert.Equal(t, 0, pickTop([]float64{0.5}))
	assert.Equal(t, 2, pickTop([]float64{0.1, 0.4, 0.9, 0.3}))
	assert.Equal(t, 1, pickTop([]float64{0.2, 0.8, 0.8}), "first wins on ties")
}

func TestFailureReason(t *testing.T) {
	t.Parallel()

	assert.True(t, ReasonTimeout.Transient())
	assert.False(t, ReasonBackendError.Transient())
	assert.Equal(t, "success", ReasonNone.MetricLabel())
	assert.Equal(t, "no_detection", ReasonNoDetection.MetricLabel())
}
