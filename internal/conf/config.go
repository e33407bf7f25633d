// config.go: This file contains the configuration for birdnet-census. It defines the settings struct and functions to load and save the settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/birdnet-census/internal/logger"
)

// CensusSettings controls the estimation pipeline.
type CensusSettings struct {
	HearingRadius           float64 // hearing radius r of every node, in meters
	Parallel                bool    // true to estimate species concurrently
	Workers                 int     // concurrent species, 0 for GOMAXPROCS
	SkipUnneededAlternation bool    // skip alternation when the full graph has no failing triangle
	Cache                   struct {
		Enabled bool // true to memoize alternated subgraphs by node set
	}
}

// InputSettings describes the collaborator input files.
type InputSettings struct {
	Coordinates string // "2d" or "geo"
	TimeFormat  string // Go time layout for detection timestamps, RFC 3339 when empty
}

// SQLiteSettings contains settings for the census run store.
type SQLiteSettings struct {
	Enabled      bool   // true to persist census runs
	Path         string // path to the sqlite database file
	MinFreeSpace int    // MB that must stay free on the database file system, 0 disables the check
}

// MQTTSettings contains settings for publishing estimates.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT
	Broker   string // MQTT (tcp://host:port)
	Topic    string // MQTT topic prefix
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to publish retained messages

	RateLimit float64 // messages per second, 0 for no limit
	RateBurst int     // messages sent back to back before the limit applies
}

// OutputSettings groups the result sinks.
type OutputSettings struct {
	SQLite SQLiteSettings
	MQTT   MQTTSettings
}

// MetricsSettings contains settings for the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   // true to enable Prometheus compatible metrics endpoint
	Listen  string // IP address and port to listen on
}

// TelemetrySettings contains settings for error reporting.
type TelemetrySettings struct {
	Enabled bool   // true to report errors to Sentry
	DSN     string // Sentry DSN
}

// Settings is the root of the configuration.
type Settings struct {
	Debug bool // true to enable debug mode

	Census    CensusSettings
	Input     InputSettings
	Output    OutputSettings
	Metrics   MetricsSettings
	Telemetry TelemetrySettings
	Logging   logger.LoggingConfig
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, CENSUS_ environment variables and any
// flags bound to the global viper instance.
func Load() (*Settings, error) {
	return load(viper.GetViper(), "")
}

// LoadFile is Load with an explicit configuration file.
func LoadFile(configPath string) (*Settings, error) {
	return load(viper.GetViper(), configPath)
}

func load(v *viper.Viper, configPath string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := loadViper(v, configPath)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// loadViper initializes v, unmarshals and validates. It does not touch the
// package settings instance.
func loadViper(v *viper.Viper, configPath string) (*Settings, error) {
	if err := initViper(v, configPath); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
// A missing config.yaml on the search path is not an error; defaults apply.
func initViper(v *viper.Viper, configPath string) error {
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFileName, filepath.Ext(ConfigFileName)))
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultConfig(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("config file loaded", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it if necessary.
// A load failure falls back to validated defaults.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() != nil {
			return
		}
		if _, err := Load(); err != nil {
			GetLogger().Error("error loading settings, using defaults", logger.Error(err))
			settingsMutex.Lock()
			settingsInstance = Defaults()
			settingsMutex.Unlock()
		}
	})
	return GetSettings()
}

// Defaults returns settings holding only default values.
func Defaults() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		GetLogger().Error("error unmarshaling default settings", logger.Error(err))
	}
	return settings
}

// SaveYAMLConfig writes settings to configPath. It overwrites the existing
// file without preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file in the same directory and rename, so readers
	// never see a partial file.
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		// Cross-device rename, fall back to copy and delete.
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}
	return nil
}
