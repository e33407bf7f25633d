// Package telemetry wires enhanced errors to Sentry when error reporting is
// enabled in the configuration.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/birdnet-census/internal/buildinfo"
	"github.com/tphakala/birdnet-census/internal/conf"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
)

// flushTimeout bounds how long the close function waits for queued events.
const flushTimeout = 2 * time.Second

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init initializes Sentry and registers it as the error reporter. It does
// nothing when telemetry is disabled. The returned close function flushes
// pending events and is never nil.
func Init(settings *conf.Settings, info *buildinfo.Context) (func(), error) {
	return initWithTransport(settings, info, nil)
}

func initWithTransport(settings *conf.Settings, info *buildinfo.Context, transport sentry.Transport) (func(), error) {
	if !settings.Telemetry.Enabled {
		errors.SetTelemetryReporter(nil)
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Telemetry.DSN,
		SampleRate:       1.0,
		Debug:            false,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // Explicitly clear server name to prevent hostname leakage
		Release:          fmt.Sprintf("birdnet-census@%s", info.Version()),
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event, info.SystemID())
		},
	})
	if err != nil {
		return func() {}, fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	GetLogger().Info("error reporting enabled", logger.String("release", info.Version()))

	return func() {
		errors.SetTelemetryReporter(nil)
		sentry.Flush(flushTimeout)
	}, nil
}

// applyPrivacyFilters strips host and user data from an event, keeping only
// the anonymous system id.
func applyPrivacyFilters(event *sentry.Event, systemID string) *sentry.Event {
	event.User = sentry.User{ID: systemID}
	event.ServerName = ""
	event.Request = nil
	event.Modules = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
