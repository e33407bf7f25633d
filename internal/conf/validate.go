// conf/validate.go contains validation logic for the configuration settings

package conf

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/birdnet-census/internal/logger"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

var (
	validMQTTSchemes = []string{"tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss"}
	validLogLevels   = []string{"trace", "debug", "info", "warn", "warning", "error"}
)

// ValidateSettings validates the entire Settings struct and reports every
// violation at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) []string{
		func(s *Settings) []string { return validateCensusSettings(&s.Census) },
		func(s *Settings) []string { return validateInputSettings(&s.Input) },
		func(s *Settings) []string { return validateOutputSettings(&s.Output) },
		func(s *Settings) []string { return validateMetricsSettings(&s.Metrics) },
		func(s *Settings) []string { return validateTelemetrySettings(&s.Telemetry) },
		func(s *Settings) []string { return validateLoggingSettings(&s.Logging) },
	} {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateCensusSettings(settings *CensusSettings) []string {
	var errs []string

	r := settings.HearingRadius
	if !(r > 0) || math.IsInf(r, 0) {
		errs = append(errs, fmt.Sprintf("census.hearingradius must be a positive finite number, got %v", r))
	}
	if settings.Workers < 0 {
		errs = append(errs, fmt.Sprintf("census.workers must not be negative, got %d", settings.Workers))
	}
	return errs
}

func validateInputSettings(settings *InputSettings) []string {
	var errs []string

	switch settings.Coordinates {
	case CoordinatesPlanar, CoordinatesGeographic:
	default:
		errs = append(errs, fmt.Sprintf("input.coordinates must be %q or %q, got %q",
			CoordinatesPlanar, CoordinatesGeographic, settings.Coordinates))
	}

	// A layout that cannot round-trip a reference time is unusable for parsing.
	if layout := settings.TimeFormat; layout != "" {
		ref := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)
		if _, err := time.Parse(layout, ref.Format(layout)); err != nil {
			errs = append(errs, fmt.Sprintf("input.timeformat %q is not a usable time layout: %v", layout, err))
		}
	}
	return errs
}

func validateOutputSettings(settings *OutputSettings) []string {
	var errs []string

	if settings.SQLite.Enabled && strings.TrimSpace(settings.SQLite.Path) == "" {
		errs = append(errs, "output.sqlite.path is required when sqlite output is enabled")
	}
	if settings.SQLite.MinFreeSpace < 0 {
		errs = append(errs, fmt.Sprintf("output.sqlite.minfreespace must not be negative, got %d", settings.SQLite.MinFreeSpace))
	}

	if settings.MQTT.Enabled {
		if settings.MQTT.Broker == "" {
			errs = append(errs, "output.mqtt.broker is required when MQTT is enabled")
		} else if u, err := url.Parse(settings.MQTT.Broker); err != nil || u.Host == "" || !slices.Contains(validMQTTSchemes, u.Scheme) {
			errs = append(errs, fmt.Sprintf("output.mqtt.broker %q is not a valid broker URL", settings.MQTT.Broker))
		}
		if strings.TrimSpace(settings.MQTT.Topic) == "" {
			errs = append(errs, "output.mqtt.topic is required when MQTT is enabled")
		}
		if settings.MQTT.RateLimit < 0 || math.IsNaN(settings.MQTT.RateLimit) || math.IsInf(settings.MQTT.RateLimit, 0) {
			errs = append(errs, fmt.Sprintf("output.mqtt.ratelimit must be a non-negative number, got %v", settings.MQTT.RateLimit))
		}
		if settings.MQTT.RateLimit > 0 && settings.MQTT.RateBurst < 1 {
			errs = append(errs, fmt.Sprintf("output.mqtt.rateburst must be at least 1 when a rate limit is set, got %d", settings.MQTT.RateBurst))
		}
	}
	return errs
}

func validateMetricsSettings(settings *MetricsSettings) []string {
	if !settings.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return []string{fmt.Sprintf("metrics.listen %q must be host:port: %v", settings.Listen, err)}
	}
	return nil
}

func validateTelemetrySettings(settings *TelemetrySettings) []string {
	if settings.Enabled && settings.DSN == "" {
		return []string{"telemetry.dsn is required when telemetry is enabled"}
	}
	return nil
}

func validateLoggingSettings(settings *logger.LoggingConfig) []string {
	var errs []string

	check := func(key, level string) {
		if level != "" && !slices.Contains(validLogLevels, strings.ToLower(level)) {
			errs = append(errs, fmt.Sprintf("%s %q is not a log level", key, level))
		}
	}
	check("logging.default_level", settings.DefaultLevel)
	if settings.Console != nil {
		check("logging.console.level", settings.Console.Level)
	}
	if settings.FileOutput != nil {
		check("logging.file_output.level", settings.FileOutput.Level)
	}
	for module, level := range settings.ModuleLevels {
		check("logging.module_levels."+module, level)
	}
	return errs
}
