package datastore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safetrack/safetrack/internal/datastore/entities"
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/observability/metrics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	tableAuditLogs    = "audit_logs"
	auditWriteTimeout = 5 * time.Second
)

// AuditConsumer writes one audit_logs row per engine event. It implements
// events.EventConsumer.
type AuditConsumer struct {
	db      *gorm.DB
	metrics *Metrics
	newID   func() string
}

// NewAuditConsumer creates an audit writer on the manager's connection.
func NewAuditConsumer(m *Manager) *AuditConsumer {
	return &AuditConsumer{db: m.db, metrics: m.metrics, newID: uuid.NewString}
}

// Name identifies the consumer on the event bus.
func (a *AuditConsumer) Name() string { return "audit" }

// ProcessEvent persists ev.
func (a *AuditConsumer) ProcessEvent(ev inspection.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	return a.Record(ctx, ev)
}

// Record persists ev with the caller's context.
func (a *AuditConsumer) Record(ctx context.Context, ev inspection.Event) error {
	row := auditRow(ev)
	row.ID = a.newID()

	start := time.Now()
	err := a.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		err = dbError(err, "write_audit", errors.PriorityLow,
			"inspection_id", ev.InspectionID, "action", row.Action)
	}
	observe(a.metrics, metrics.OpDbInsert, tableAuditLogs, start, err)
	return err
}

// History returns the audit trail of an inspection, oldest first.
func (a *AuditConsumer) History(ctx context.Context, inspectionID string, limit int) ([]entities.AuditLog, error) {
	start := time.Now()
	q := a.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []entities.AuditLog
	err := q.Find(&rows).Error
	if err != nil {
		err = dbError(err, "audit_history", errors.PriorityLow, "inspection_id", inspectionID)
	}
	observe(a.metrics, metrics.OpDbQuery, tableAuditLogs, start, err)
	return rows, err
}

func auditRow(ev inspection.Event) entities.AuditLog {
	row := entities.AuditLog{
		InspectionID: ev.InspectionID,
		EntityType:   entities.EntityInspection,
		EntityID:     ev.InspectionID,
		CreatedAt:    ev.At.UTC(),
		Metadata: datatypes.JSONMap{
			"status":           string(ev.Status),
			"percent_complete": ev.Progress.PercentComplete,
		},
	}
	if ev.ActorID != "" {
		actor := ev.ActorID
		row.UserID = &actor
	}
	if ev.Reason != "" {
		row.Metadata["reason"] = ev.Reason
	}

	switch ev.Type {
	case inspection.EventResponseRecorded:
		row.Action = entities.AuditResponseRecorded
		row.EntityType = entities.EntityItemResponse
		row.EntityID = ev.ItemID
		row.Metadata["state"] = string(ev.State)
		if ev.Comment != "" {
			row.Metadata["comment"] = ev.Comment
		}
	case inspection.EventItemsMarkedNA:
		row.Action = entities.AuditItemsMarkedNA
		row.Metadata["count"] = ev.Count
	case inspection.EventInspectionTransitioned:
		row.Action = entities.AuditInspectionTransition
		row.Metadata["from"] = string(ev.PreviousStatus)
		row.Metadata["to"] = string(ev.Status)
	default:
		row.Action = string(ev.Type)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}
