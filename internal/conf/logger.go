// Package conf provides configuration management for birdnet-census.
package conf

import "github.com/tphakala/birdnet-census/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so that it follows
// a central logger installed after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
