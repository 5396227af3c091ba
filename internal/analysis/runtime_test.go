package analysis

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/datastore/repository"
	"github.com/tphakala/image-analyzer/internal/logger"
)

func runtimeSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Local: conf.LocalSettings{SuccessRate: 1, ClassCount: 5},
		Datastore: conf.DatastoreSettings{
			Type:   conf.DatastoreSQLite,
			SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "runtime.db")},
		},
	}
}

// Not parallel: availability is read from the global viper instance.
func TestRuntime_AnalyzeAndList(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("vision.credentialsfile", "")
	viper.Set("mockapi.url", "")

	rt, err := NewRuntime(t.Context(), runtimeSettings(t), logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	res, err := rt.Service.Analyze(t.Context(), classifier.InlineReference, classifier.FromBytes([]byte("img")))
	require.NoError(t, err)
	assert.True(t, res.Record.Outcome.Succeeded)
	assert.Equal(t, classifier.KindLocal, res.Record.Outcome.Provider)

	logs, total, err := rt.Service.ListLogs(t.Context(), repository.AnalysisLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, res.LogID, logs[0].ID)

	assert.Equal(t, 1, testutil.CollectAndCount(rt.Metrics.Classifier, "classifier_records_persisted_total"))
}

func TestRuntime_InvalidBrokerDisablesPublishing(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("vision.credentialsfile", "")
	viper.Set("mockapi.url", "")

	settings := runtimeSettings(t)
	settings.MQTT = conf.MQTTSettings{Enabled: true, Broker: "not a url"}

	rt, err := NewRuntime(t.Context(), settings, logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	assert.Nil(t, rt.publisher)

	_, err = rt.Service.Analyze(t.Context(), classifier.InlineReference, classifier.FromBytes([]byte("img")))
	require.NoError(t, err)
}
