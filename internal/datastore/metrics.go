package datastore

import (
	"time"

	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/observability/metrics"
)

// Metrics is the datastore's Prometheus collector.
type Metrics = metrics.DatastoreMetrics

// observe records the outcome of one database operation. Missing records are
// an expected outcome and count as success.
func observe(m *Metrics, operation, table string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil && !errors.Is(err, inspection.ErrNotFound) {
		status = metrics.StatusError
		m.RecordDbOperationError(operation, table, errorType(err))
	}
	m.RecordDbOperation(operation, table, status)
	m.RecordDbOperationDuration(operation, table, time.Since(start).Seconds())
}

func observeTransaction(m *Metrics, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil && !errors.Is(err, inspection.ErrNotFound) {
		status = metrics.StatusError
	}
	m.RecordTransaction(status)
	m.RecordTransactionDuration(operation, time.Since(start).Seconds())
}

func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryDatabase)
}
