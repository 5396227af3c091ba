// Package conf loads and validates image-analyzer settings.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
	"github.com/tphakala/image-analyzer/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root configuration
type Settings struct {
	Debug bool `yaml:"debug"`

	Vision    VisionSettings       `yaml:"vision"`
	MockAPI   MockAPISettings      `yaml:"mockapi"`
	Local     LocalSettings        `yaml:"local"`
	Datastore DatastoreSettings    `yaml:"datastore"`
	WebServer WebServerSettings    `yaml:"webserver"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	MQTT      MQTTSettings         `yaml:"mqtt"`
	Sentry    SentrySettings       `yaml:"sentry"`
}

// VisionSettings configures the cloud vision backend
type VisionSettings struct {
	CredentialsFile string        `yaml:"credentialsfile"` // service account JSON; presence selects this backend
	Endpoint        string        `yaml:"endpoint"`        // override for the REST endpoint, empty for default
	Timeout         time.Duration `yaml:"timeout"`         // per-call bound
	RateLimit       float64       `yaml:"ratelimit"`       // requests per second, 0 disables limiting
	Burst           int           `yaml:"burst"`           // limiter burst size
}

// MockAPISettings configures the remote mock analysis endpoint
type MockAPISettings struct {
	URL     string        `yaml:"url"`     // remote endpoint; presence selects this backend
	Timeout time.Duration `yaml:"timeout"` // per-call bound
	Listen  string        `yaml:"listen"`  // listen address for the bundled mock server
}

// LocalSettings configures the synthetic generator
type LocalSettings struct {
	SuccessRate float64       `yaml:"successrate"` // probability of a successful result
	MinLatency  time.Duration `yaml:"minlatency"`
	MaxLatency  time.Duration `yaml:"maxlatency"`
	ClassCount  int           `yaml:"classcount"` // synthetic class ids are 1..ClassCount
}

// DatastoreSettings selects and configures the database
type DatastoreSettings struct {
	Type               string         `yaml:"type"` // sqlite or mysql
	SQLite             SQLiteSettings `yaml:"sqlite"`
	MySQL              MySQLSettings  `yaml:"mysql"`
	SlowQueryThreshold time.Duration  `yaml:"slowquerythreshold"`
}

// SQLiteSettings configures the SQLite database file
type SQLiteSettings struct {
	Path string `yaml:"path"`
}

// MySQLSettings configures the MySQL connection
type MySQLSettings struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`     // literal or ${VAR} reference
	PasswordFile string `yaml:"passwordfile"` // mounted secret, wins over Password
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Database     string `yaml:"database"`
}

// WebServerSettings configures the HTTP API
type WebServerSettings struct {
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	Debug          bool          `yaml:"debug"`
	RequestTimeout time.Duration `yaml:"requesttimeout"`
}

// MQTTSettings configures publishing of analysis records
type MQTTSettings struct {
	Enabled      bool   `yaml:"enabled"`
	Broker       string `yaml:"broker"`
	Topic        string `yaml:"topic"`
	ClientID     string `yaml:"clientid"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`     // literal or ${VAR} reference
	PasswordFile string `yaml:"passwordfile"` // mounted secret, wins over Password
	Retain       bool   `yaml:"retain"`
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

var (
	settingsInstance   *Settings
	settingsMutex      sync.RWMutex
	configFileOverride string
)

// SetConfigFile forces Load to read path instead of searching the default locations.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileOverride = path
}

// Load reads the configuration file and environment variables.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	viper.Reset()
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	viper.SetConfigType("yaml")
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		// Bad values are reported by validation with the field name
		fmt.Fprintln(os.Stderr, err)
	}

	if configFileOverride != "" {
		viper.SetConfigFile(configFileOverride)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFileOverride, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	viper.AddConfigPath(".")
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded defaults to dir and reads them back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Created default config file at:", configPath)
	return viper.ReadInConfig()
}

func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// embedded at build time
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// GetSettings returns the most recently loaded settings, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path viper read, empty when none.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// resolveSecrets replaces credential fields with their file or environment
// values. Permissive secret files are reported on stderr and still used.
func resolveSecrets(settings *Settings) error {
	fields := []struct {
		name  string
		file  string
		value *string
	}{
		{"datastore.mysql.password", settings.Datastore.MySQL.PasswordFile, &settings.Datastore.MySQL.Password},
		{"mqtt.password", settings.MQTT.PasswordFile, &settings.MQTT.Password},
		{"sentry.dsn", "", &settings.Sentry.DSN},
	}
	for _, f := range fields {
		v, err := secrets.Resolve(f.file, *f.value)
		if errors.Is(err, secrets.ErrPermissive) {
			fmt.Fprintln(os.Stderr, "WARNING:", err)
			err = nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = v
	}
	return nil
}

// DumpYAML renders settings as YAML with secrets masked.
func DumpYAML(settings *Settings) ([]byte, error) {
	if settings == nil {
		return nil, errors.NewStd("settings cannot be nil")
	}
	masked := *settings
	masked.Datastore.MySQL.Password = maskSecret(masked.Datastore.MySQL.Password)
	masked.MQTT.Password = maskSecret(masked.MQTT.Password)
	masked.Sentry.DSN = maskSecret(masked.Sentry.DSN)

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
