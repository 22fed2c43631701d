// Package app assembles the SafeTrack components from settings. The CLI
// commands use it so that serve, migrate and inspection see the same engine.
package app

import (
	"slices"

	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/datastore"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/logger"
	"github.com/safetrack/safetrack/internal/observability/metrics"
)

// OpenDatastore connects to the configured database and migrates the schema.
func OpenDatastore(settings *conf.DatabaseSettings, dm *metrics.DatastoreMetrics) (*datastore.Manager, error) {
	opts := []datastore.Option{datastore.WithLogger(logger.Global().Module("datastore"))}
	if dm != nil {
		opts = append(opts, datastore.WithMetrics(dm))
	}

	db, err := datastore.Open(settings, opts...)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// AttachmentPolicy converts the attachment settings.
func AttachmentPolicy(settings *conf.Settings) inspection.AttachmentPolicy {
	return inspection.AttachmentPolicy{
		MaxBytes:     settings.Inspection.Attachments.MaxBytes,
		AllowedTypes: slices.Clone(settings.Inspection.Attachments.AllowedTypes),
	}
}

// ElevatedRoles converts the configured role names.
func ElevatedRoles(settings *conf.Settings) []inspection.Role {
	roles := make([]inspection.Role, 0, len(settings.Inspection.ElevatedRoles))
	for _, r := range settings.Inspection.ElevatedRoles {
		roles = append(roles, inspection.Role(r))
	}
	return roles
}

// NewEngine builds the inspection engine over store. observer may be nil.
func NewEngine(settings *conf.Settings, store inspection.Store, observer inspection.Observer) (*inspection.Engine, error) {
	opts := []inspection.Option{
		inspection.WithAttachmentPolicy(AttachmentPolicy(settings)),
		inspection.WithElevatedRoles(ElevatedRoles(settings)...),
		inspection.WithLogger(logger.Global().Module("inspection")),
	}
	if observer != nil {
		opts = append(opts, inspection.WithObserver(observer))
	}
	return inspection.NewEngine(store, opts...)
}
