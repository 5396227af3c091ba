package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with components that can run without a config file.
const (
	DefaultVisionTimeout   = 30 * time.Second
	DefaultMockAPITimeout  = 30 * time.Second
	DefaultLocalSuccess    = 0.8
	DefaultLocalMinLatency = 300 * time.Millisecond
	DefaultLocalMaxLatency = 1200 * time.Millisecond
	DefaultLocalClassCount = 5
)

func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("vision.credentialsfile", "")
	viper.SetDefault("vision.endpoint", "")
	viper.SetDefault("vision.timeout", DefaultVisionTimeout)
	viper.SetDefault("vision.ratelimit", 0.0)
	viper.SetDefault("vision.burst", 1)

	viper.SetDefault("mockapi.url", "")
	viper.SetDefault("mockapi.timeout", DefaultMockAPITimeout)
	viper.SetDefault("mockapi.listen", ":8090")

	viper.SetDefault("local.successrate", DefaultLocalSuccess)
	viper.SetDefault("local.minlatency", DefaultLocalMinLatency)
	viper.SetDefault("local.maxlatency", DefaultLocalMaxLatency)
	viper.SetDefault("local.classcount", DefaultLocalClassCount)

	viper.SetDefault("datastore.type", "sqlite")
	viper.SetDefault("datastore.sqlite.path", "image-analyzer.db")
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", "3306")
	viper.SetDefault("datastore.mysql.database", "image_analyzer")
	viper.SetDefault("datastore.slowquerythreshold", 200*time.Millisecond)

	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.requesttimeout", 60*time.Second)

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.fileoutput.enabled", false)
	viper.SetDefault("logging.fileoutput.path", "logs/image-analyzer.log")
	viper.SetDefault("logging.fileoutput.level", "info")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "image-analyzer/analysis")
	viper.SetDefault("mqtt.clientid", "image-analyzer")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
