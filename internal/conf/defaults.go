// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-census/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("census.hearingradius", DefaultHearingRadius)
	v.SetDefault("census.parallel", true)
	v.SetDefault("census.workers", 0)
	v.SetDefault("census.skipunneededalternation", true)
	v.SetDefault("census.cache.enabled", true)

	v.SetDefault("input.coordinates", CoordinatesPlanar)
	v.SetDefault("input.timeformat", "")

	v.SetDefault("output.sqlite.enabled", false)
	v.SetDefault("output.sqlite.path", DefaultSQLitePath)
	v.SetDefault("output.sqlite.minfreespace", DefaultMinFreeSpaceMB)

	v.SetDefault("output.mqtt.enabled", false)
	v.SetDefault("output.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("output.mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("output.mqtt.username", "")
	v.SetDefault("output.mqtt.password", "")
	v.SetDefault("output.mqtt.retain", false)
	v.SetDefault("output.mqtt.ratelimit", DefaultMQTTRateLimit)
	v.SetDefault("output.mqtt.rateburst", DefaultMQTTRateBurst)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", DefaultMetricsListen)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
}
