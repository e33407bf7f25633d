package observability

import "github.com/tphakala/birdnet-census/internal/logger"

// getLogger returns the module logger, resolved lazily so it follows SetGlobal.
func getLogger() logger.Logger {
	return logger.Global().Module("metrics")
}
