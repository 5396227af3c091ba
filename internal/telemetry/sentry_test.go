package telemetry

import (
	"fmt"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/image-analyzer/internal/buildinfo"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/errors"
)

// Tests in this file use the global Sentry hub and are not parallel.

func TestInit_Disabled(t *testing.T) {
	ok, err := Init(&conf.Settings{}, &buildinfo.Context{})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Init(nil, &buildinfo.Context{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInit_ReportsConfigurationErrors(t *testing.T) {
	transport := &mockTransport{}
	settings := &conf.Settings{Sentry: conf.SentrySettings{Enabled: true}}

	ok, err := Init(settings, &buildinfo.Context{Version: "1.0.0"}, WithTransport(transport))
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { Flush(DefaultFlushTimeout) })

	_ = errors.New(fmt.Errorf("bad setting at /etc/image-analyzer/config.yaml")).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
	_ = errors.Newf("label missing").
		Component("labels").
		Category(errors.CategoryNotFound).
		Build()

	sentry.Flush(DefaultFlushTimeout)
	events := transport.Events()
	require.Len(t, events, 1, "only reportable categories reach Sentry")
	assert.Equal(t, "image-analyzer@1.0.0", events[0].Release)
	assert.NotContains(t, events[0].Message, "/etc/image-analyzer", "paths are scrubbed")
	assert.Empty(t, events[0].ServerName)
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := &sentry.Event{
		ServerName: "host-1",
		User:       sentry.User{ID: "u"},
		Contexts:   map[string]sentry.Context{"os": {}, "app": {}},
		Extra:      map[string]any{"component": "api", "path": "/home/x"},
		Tags:       map[string]string{"hostname": "h", "category": "database"},
	}

	out := applyPrivacyFilters(event)
	assert.Empty(t, out.ServerName)
	assert.Equal(t, sentry.User{}, out.User)
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "app")
	assert.Equal(t, map[string]any{"component": "api"}, out.Extra)
	assert.Equal(t, map[string]string{"category": "database"}, out.Tags)
}
