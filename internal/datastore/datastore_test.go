package datastore

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/datastore/entities"
	"github.com/safetrack/safetrack/internal/logger"
	"github.com/safetrack/safetrack/internal/observability/metrics"
	"github.com/stretchr/testify/require"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

// newTestManager opens a migrated in-memory SQLite database.
func newTestManager(t *testing.T) *Manager {
	t.Helper()

	dm, err := metrics.NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	settings := &conf.DatabaseSettings{
		Type:   "sqlite",
		SQLite: conf.SQLiteSettings{Path: ":memory:"},
	}
	m, err := Open(settings, WithLogger(quietLogger()), WithMetrics(dm))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Initialize())
	return m
}

// seedInspection creates an area and an inspection with n items whose order
// indexes run backwards from n-1, so insertion order never matches display order.
func seedInspection(t *testing.T, m *Manager, id, status string, n int) []string {
	t.Helper()
	ctx := t.Context()

	areaID := "area-" + id
	require.NoError(t, m.DB().WithContext(ctx).Create(&entities.Area{ID: areaID, Name: "Area " + id}).Error)
	require.NoError(t, m.DB().WithContext(ctx).Create(&entities.Inspection{
		ID:          id,
		AreaID:      areaID,
		Status:      status,
		ScheduledAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		CreatedBy:   "creator",
	}).Error)

	ids := make([]string, n)
	for k := range n {
		item := entities.InspectionItem{
			ID:           fmt.Sprintf("%s-item-%d", id, k+1),
			InspectionID: id,
			Label:        fmt.Sprintf("Item %d", k+1),
			OrderIndex:   n - 1 - k,
			Required:     true,
		}
		require.NoError(t, m.DB().WithContext(ctx).Create(&item).Error)
		ids[n-1-k] = item.ID
	}
	return ids
}

func newSettings(dbType string) *conf.DatabaseSettings {
	return &conf.DatabaseSettings{
		Type:   dbType,
		SQLite: conf.SQLiteSettings{Path: ":memory:"},
		MySQL: conf.MySQLSettings{
			Host:     "db.internal",
			Port:     3307,
			Username: "safetrack",
			Password: "secret",
			Database: "safetrack",
		},
	}
}
