// Package observability provides Prometheus metrics functionality for monitoring the SafeTrack application.
package observability

import (
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/logger"
)

// serviceLog resolves the module logger on use so it follows logger.SetGlobal.
func serviceLog() logger.Logger {
	return logger.Global().Module("metrics")
}

var errMetricsDisabled = errors.Newf("metrics endpoint not enabled in settings").
	Component("observability").
	Category(errors.CategoryConfiguration).
	Build()
