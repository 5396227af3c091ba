package analysis

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/labels"
)

// Not parallel: reads and writes the global viper instance.
func TestAvailability(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("vision.credentialsfile", "")
	viper.Set("mockapi.url", "")
	assert.Equal(t, classifier.KindLocal, classifier.Select(Availability()))

	viper.Set("mockapi.url", "http://mock.test/")
	assert.Equal(t, classifier.KindMock, classifier.Select(Availability()))

	viper.Set("vision.credentialsfile", "/etc/key.json")
	assert.Equal(t, classifier.KindVision, classifier.Select(Availability()))
}

func TestNewDispatcher_DefaultsToLocal(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("vision.credentialsfile", "")
	viper.Set("mockapi.url", "")

	settings := &conf.Settings{
		Local: conf.LocalSettings{SuccessRate: 1, ClassCount: 3},
	}
	d := NewDispatcher(settings, labels.NewRegistry(labels.NewMemoryStore()), nil, nil)
	t.Cleanup(d.Close)

	out, err := d.Dispatch(t.Context(), classifier.FromBytes([]byte("img")))
	require.NoError(t, err)
	assert.True(t, out.Succeeded)
	assert.Equal(t, classifier.KindLocal, out.Provider)
	assert.LessOrEqual(t, out.LabelID, uint(3))
}
