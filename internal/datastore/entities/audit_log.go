package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions.
const (
	AuditResponseRecorded     = "response.recorded"
	AuditItemsMarkedNA        = "items.marked_na"
	AuditInspectionTransition = "inspection.transitioned"
)

// Audited entity types.
const (
	EntityInspection   = "inspection"
	EntityItemResponse = "item_response"
)

// AuditLog is an append-only record of a committed change.
type AuditLog struct {
	ID           string            `gorm:"primaryKey;size:36"`
	InspectionID string            `gorm:"size:36;index;not null"`
	Action       string            `gorm:"size:64;index;not null"`
	EntityType   string            `gorm:"size:32;not null"`
	EntityID     string            `gorm:"size:36;index;not null"`
	UserID       *string           `gorm:"size:64;index"`
	Metadata     datatypes.JSONMap `gorm:"type:json"`
	CreatedAt    time.Time         `gorm:"index"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
