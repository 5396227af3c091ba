package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding maps an environment variable onto a viper key
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		// Backend availability signals
		{"vision.credentialsfile", "GOOGLE_APPLICATION_CREDENTIALS", nil},
		{"mockapi.url", "MOCK_AI_ANALYSIS_API_URL", validateEnvURL},

		{"vision.endpoint", "IMAGE_ANALYZER_VISION_ENDPOINT", validateEnvURL},
		{"local.successrate", "IMAGE_ANALYZER_LOCAL_SUCCESS_RATE", validateEnvProbability},

		{"datastore.type", "IMAGE_ANALYZER_DATASTORE_TYPE", validateEnvDatastoreType},
		{"datastore.sqlite.path", "IMAGE_ANALYZER_SQLITE_PATH", nil},
		{"datastore.mysql.host", "IMAGE_ANALYZER_MYSQL_HOST", nil},
		{"datastore.mysql.port", "IMAGE_ANALYZER_MYSQL_PORT", validateEnvPort},
		{"datastore.mysql.username", "IMAGE_ANALYZER_MYSQL_USERNAME", nil},
		{"datastore.mysql.password", "IMAGE_ANALYZER_MYSQL_PASSWORD", nil},
		{"datastore.mysql.database", "IMAGE_ANALYZER_MYSQL_DATABASE", nil},

		{"webserver.port", "IMAGE_ANALYZER_PORT", validateEnvPort},
		{"logging.defaultlevel", "IMAGE_ANALYZER_LOG_LEVEL", validateEnvLogLevel},
		{"mqtt.broker", "IMAGE_ANALYZER_MQTT_BROKER", nil},
		{"sentry.dsn", "IMAGE_ANALYZER_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every variable and reports invalid values it finds
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvURL(value string) error {
	return validateHTTPURL(value)
}

func validateEnvProbability(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validateEnvDatastoreType(value string) error {
	switch strings.ToLower(value) {
	case DatastoreSQLite, DatastoreMySQL:
		return nil
	}
	return fmt.Errorf("must be %q or %q", DatastoreSQLite, DatastoreMySQL)
}

func validateEnvPort(value string) error {
	return validatePort(value)
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}

func validateHTTPURL(value string) error {
	u, err := url.ParseRequestURI(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

func validatePort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("port must be numeric")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
