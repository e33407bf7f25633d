// conf/consts.go hard coded constants
package conf

const (
	// Coordinate systems accepted for node positions.
	CoordinatesPlanar     = "2d"  // n_x, n_y in meters
	CoordinatesGeographic = "geo" // lat, lon in degrees, projected around the node centroid

	ConfigFileName = "config.yaml"
	EnvPrefix      = "CENSUS"

	DefaultHearingRadius = 100.0 // meters
	DefaultSQLitePath    = "census.db"
	DefaultMQTTTopic     = "birdnet-census/estimates"
	DefaultMetricsListen = "127.0.0.1:8090"

	DefaultMinFreeSpaceMB = 16
	DefaultMQTTRateLimit  = 20.0 // messages per second
	DefaultMQTTRateBurst  = 5
)
