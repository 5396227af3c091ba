package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/image-analyzer/internal/buildinfo"
	"github.com/tphakala/image-analyzer/internal/conf"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"webserver:",
		`  port: "9090"`,
		"mqtt:",
		"  password: hunter2",
		"logging:",
		"  console:",
		"    enabled: false",
		"datastore:",
		"  type: sqlite",
		"  sqlite:",
		"    path: " + filepath.Join(dir, "analyzer.db"),
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		conf.SetConfigFile("")
		viper.Reset()
	})
	return path
}

func execute(t *testing.T, args ...string) (string, *conf.Settings, error) {
	t.Helper()
	settings := &conf.Settings{}
	root := RootCommand(settings, &buildinfo.Context{Version: "test"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), settings, err
}

// Not parallel: configuration loading uses the global viper instance.
func TestConfigCommand(t *testing.T) {
	path := writeConfig(t)

	out, settings, err := execute(t, "config", "--config", path, "--debug")
	require.NoError(t, err)
	assert.Contains(t, out, `port: "9090"`)
	assert.NotContains(t, out, "hunter2")
	assert.True(t, settings.Debug)
	assert.Equal(t, "debug", settings.Logging.DefaultLevel)
}

func TestLabelsCommand_EmptyStore(t *testing.T) {
	path := writeConfig(t)

	out, _, err := execute(t, "labels", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "0 labels")
}

func TestAnalyzeCommand_MissingFileIsRecorded(t *testing.T) {
	path := writeConfig(t)
	missing := filepath.Join(t.TempDir(), "none.png")

	out, _, err := execute(t, "analyze", "--config", path, missing)
	require.NoError(t, err)
	assert.Contains(t, out, `"success": false`)
	assert.Contains(t, out, `"failureReason": "validation"`)
	assert.Contains(t, out, `"logId": 1`)
}

func TestUnknownConfigFile(t *testing.T) {
	t.Cleanup(func() {
		conf.SetConfigFile("")
		viper.Reset()
	})

	_, _, err := execute(t, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
