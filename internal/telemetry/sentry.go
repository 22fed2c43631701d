// Package telemetry wires error reporting to Sentry. Reporting is opt-in and
// events are stripped of host and user data before they leave the process.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/safetrack/safetrack/internal/buildinfo"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/logger"
)

// DefaultFlushTimeout bounds how long shutdown waits for queued events.
const DefaultFlushTimeout = 2 * time.Second

// allowedExtras are the only Extra keys that survive filtering.
var allowedExtras = map[string]bool{
	"error_type": true,
	"component":  true,
}

// Init configures the Sentry SDK and installs it as the error reporter.
// It reports false without error when telemetry is disabled.
func Init(settings *conf.TelemetrySettings, build *buildinfo.Context) (bool, error) {
	if settings == nil || !settings.Enabled || settings.SentryDSN == "" {
		return false, nil
	}

	environment := settings.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.SentryDSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          build.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return false, fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	logger.Global().Module("telemetry").Info("error reporting enabled",
		logger.String("environment", environment),
		logger.String("release", build.Release()))
	return true, nil
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}
	return sentry.Flush(timeout)
}

// applyPrivacyFilters drops user, host and runtime details from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if !allowedExtras[k] {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
