package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	SetConfigFile(path)
	t.Cleanup(func() { SetConfigFile("") })
	return path
}

func TestLoad_Defaults(t *testing.T) {
	writeConfig(t, "debug: false\n")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultVisionTimeout, settings.Vision.Timeout)
	assert.InDelta(t, DefaultLocalSuccess, settings.Local.SuccessRate, 1e-9)
	assert.Equal(t, 300*time.Millisecond, settings.Local.MinLatency)
	assert.Equal(t, 1200*time.Millisecond, settings.Local.MaxLatency)
	assert.Equal(t, 5, settings.Local.ClassCount)
	assert.Equal(t, DatastoreSQLite, settings.Datastore.Type)
	assert.Equal(t, "8080", settings.WebServer.Port)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoad_FileValues(t *testing.T) {
	writeConfig(t, `
mockapi:
  url: http://mock.local:8090/
  timeout: 5s
local:
  successrate: 0.25
datastore:
  type: MySQL
  mysql:
    username: analyzer
    password: secret
    host: db
    port: "3307"
    database: images
`)

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://mock.local:8090/", settings.MockAPI.URL)
	assert.Equal(t, 5*time.Second, settings.MockAPI.Timeout)
	assert.InDelta(t, 0.25, settings.Local.SuccessRate, 1e-9)
	assert.Equal(t, DatastoreMySQL, settings.Datastore.Type)
	assert.Equal(t, "3307", settings.Datastore.MySQL.Port)
}

func TestLoad_EnvironmentSignals(t *testing.T) {
	writeConfig(t, "debug: false\n")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/gcp.json")
	t.Setenv("MOCK_AI_ANALYSIS_API_URL", "https://mock.example.com/analyze")

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/secrets/gcp.json", settings.Vision.CredentialsFile)

	signals := Signals()
	assert.Equal(t, "/secrets/gcp.json", signals.VisionCredentials)
	assert.Equal(t, "https://mock.example.com/analyze", signals.MockAPIURL)

	// Signals re-reads the environment without a reload
	t.Setenv("MOCK_AI_ANALYSIS_API_URL", "")
	assert.Empty(t, Signals().MockAPIURL)
}

func TestLoad_CreatesDefaultConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	_, err := Load()
	require.NoError(t, err)

	created := filepath.Join(home, ".config", appDirName, "config.yaml")
	assert.FileExists(t, created)
	assert.Equal(t, created, ConfigFileUsed())
}

func TestLoad_InvalidSettings(t *testing.T) {
	writeConfig(t, `
local:
  successrate: 1.5
  minlatency: 2s
  maxlatency: 1s
datastore:
  type: postgres
`)

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestLoad_ResolvesSecrets(t *testing.T) {
	t.Setenv("IA_TEST_MQTT_PASSWORD", "from-env")
	secretFile := filepath.Join(t.TempDir(), "mysql_password")
	require.NoError(t, os.WriteFile(secretFile, []byte("from-file\n"), 0o600))

	writeConfig(t, `
datastore:
  mysql:
    password: ignored
    passwordfile: `+secretFile+`
mqtt:
  password: ${IA_TEST_MQTT_PASSWORD}
`)

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", settings.Datastore.MySQL.Password)
	assert.Equal(t, "from-env", settings.MQTT.Password)
}

func TestLoad_MissingSecretVariable(t *testing.T) {
	writeConfig(t, `
mqtt:
  password: ${IA_TEST_UNSET_SECRET}
`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt.password")
}

func TestValidateSettings(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			Vision:    VisionSettings{Timeout: time.Second},
			MockAPI:   MockAPISettings{Timeout: time.Second},
			Local:     LocalSettings{SuccessRate: 0.8, MinLatency: 0, MaxLatency: time.Second, ClassCount: 5},
			Datastore: DatastoreSettings{Type: DatastoreSQLite, SQLite: SQLiteSettings{Path: "x.db"}},
			WebServer: WebServerSettings{Port: "8080"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"bad mock url", func(s *Settings) { s.MockAPI.URL = "ftp://mock" }, "mockapi.url"},
		{"zero vision timeout", func(s *Settings) { s.Vision.Timeout = 0 }, "vision.timeout"},
		{"rate limit without burst", func(s *Settings) { s.Vision.RateLimit = 2 }, "vision.burst"},
		{"no classes", func(s *Settings) { s.Local.ClassCount = 0 }, "local.classcount"},
		{"bad port", func(s *Settings) { s.WebServer.Port = "http" }, "webserver.port"},
		{"mqtt without topic", func(s *Settings) { s.MQTT = MQTTSettings{Enabled: true, Broker: "tcp://b:1883"} }, "mqtt.topic"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
		{"mysql missing user", func(s *Settings) {
			s.Datastore = DatastoreSettings{Type: DatastoreMySQL, MySQL: MySQLSettings{Host: "db", Database: "d", Port: "3306"}}
		}, "datastore.mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDumpYAML_MasksSecrets(t *testing.T) {
	settings := &Settings{
		Datastore: DatastoreSettings{MySQL: MySQLSettings{Password: "hunter2"}},
		MQTT:      MQTTSettings{Password: "mqttpass"},
		Sentry:    SentrySettings{DSN: "https://key@sentry.example/1"},
	}

	out, err := DumpYAML(settings)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
	assert.NotContains(t, string(out), "mqttpass")
	assert.NotContains(t, string(out), "sentry.example")
	assert.Equal(t, "hunter2", settings.Datastore.MySQL.Password, "input is not modified")

	_, err = DumpYAML(nil)
	require.Error(t, err)
}

func TestBindEnvVars_ReportsInvalidValues(t *testing.T) {
	t.Setenv("IMAGE_ANALYZER_PORT", "not-a-port")
	t.Setenv("IMAGE_ANALYZER_LOCAL_SUCCESS_RATE", "2")

	err := bindEnvVars()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMAGE_ANALYZER_PORT")
	assert.Contains(t, err.Error(), "IMAGE_ANALYZER_LOCAL_SUCCESS_RATE")
}
