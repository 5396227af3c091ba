package conf

import (
	"fmt"
	"strings"
)

// Supported datastore types
const (
	DatastoreSQLite = "sqlite"
	DatastoreMySQL  = "mysql"
)

// ValidationError collects every problem found in one pass
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	collect := func(errs []string) {
		ve.Errors = append(ve.Errors, errs...)
	}
	collect(validateVisionSettings(&settings.Vision))
	collect(validateMockAPISettings(&settings.MockAPI))
	collect(validateLocalSettings(&settings.Local))
	collect(validateDatastoreSettings(&settings.Datastore))
	collect(validateWebServerSettings(&settings.WebServer))
	collect(validateMQTTSettings(&settings.MQTT))

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateVisionSettings(s *VisionSettings) []string {
	var errs []string
	if s.Timeout <= 0 {
		errs = append(errs, "vision.timeout must be positive")
	}
	if s.RateLimit < 0 {
		errs = append(errs, "vision.ratelimit must not be negative")
	}
	if s.RateLimit > 0 && s.Burst < 1 {
		errs = append(errs, "vision.burst must be at least 1 when rate limiting")
	}
	if s.Endpoint != "" {
		if err := validateHTTPURL(s.Endpoint); err != nil {
			errs = append(errs, fmt.Sprintf("vision.endpoint: %v", err))
		}
	}
	return errs
}

func validateMockAPISettings(s *MockAPISettings) []string {
	var errs []string
	if s.Timeout <= 0 {
		errs = append(errs, "mockapi.timeout must be positive")
	}
	if s.URL != "" {
		if err := validateHTTPURL(s.URL); err != nil {
			errs = append(errs, fmt.Sprintf("mockapi.url: %v", err))
		}
	}
	return errs
}

func validateLocalSettings(s *LocalSettings) []string {
	var errs []string
	if s.SuccessRate < 0 || s.SuccessRate > 1 {
		errs = append(errs, "local.successrate must be between 0 and 1")
	}
	if s.MinLatency < 0 || s.MaxLatency < 0 {
		errs = append(errs, "local latency bounds must not be negative")
	}
	if s.MinLatency > s.MaxLatency {
		errs = append(errs, "local.minlatency must not exceed local.maxlatency")
	}
	if s.ClassCount < 1 {
		errs = append(errs, "local.classcount must be at least 1")
	}
	return errs
}

func validateDatastoreSettings(s *DatastoreSettings) []string {
	var errs []string
	s.Type = strings.ToLower(s.Type)
	switch s.Type {
	case DatastoreSQLite:
		if s.SQLite.Path == "" {
			errs = append(errs, "datastore.sqlite.path is required")
		}
	case DatastoreMySQL:
		if s.MySQL.Host == "" || s.MySQL.Database == "" || s.MySQL.Username == "" {
			errs = append(errs, "datastore.mysql requires host, database and username")
		}
		if err := validatePort(s.MySQL.Port); err != nil {
			errs = append(errs, fmt.Sprintf("datastore.mysql.port: %v", err))
		}
	default:
		errs = append(errs, fmt.Sprintf("datastore.type %q is not supported", s.Type))
	}
	return errs
}

func validateWebServerSettings(s *WebServerSettings) []string {
	var errs []string
	if err := validatePort(s.Port); err != nil {
		errs = append(errs, fmt.Sprintf("webserver.port: %v", err))
	}
	if s.RequestTimeout < 0 {
		errs = append(errs, "webserver.requesttimeout must not be negative")
	}
	return errs
}

func validateMQTTSettings(s *MQTTSettings) []string {
	if !s.Enabled {
		return nil
	}
	var errs []string
	if s.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	}
	if s.Topic == "" {
		errs = append(errs, "mqtt.topic is required when mqtt is enabled")
	}
	return errs
}
