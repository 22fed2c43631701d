package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Inspection is one checklist run. Status values match inspection.Status.
type Inspection struct {
	ID               string     `gorm:"primaryKey;size:36"`
	AreaID           string     `gorm:"size:36;index;not null"`
	Area             *Area      `gorm:"foreignKey:AreaID;constraint:OnDelete:RESTRICT"`
	Status           string     `gorm:"size:20;index;not null;default:pending"`
	PercentComplete  float64    `gorm:"not null;default:0"`
	ScheduledAt      time.Time  `gorm:"index;not null"`
	StartedAt        *time.Time `gorm:"column:started_at"`
	FinishedAt       *time.Time `gorm:"index"`
	ForceCloseReason *string    `gorm:"type:text"`
	Notes            *string    `gorm:"type:text"`
	CreatedBy        string     `gorm:"size:64;not null"`
	AssignedTo       *string    `gorm:"size:64;index"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`

	Items []InspectionItem `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Inspection) TableName() string {
	return "inspections"
}

// InspectionItem is one checklist question.
type InspectionItem struct {
	ID           string    `gorm:"primaryKey;size:36"`
	InspectionID string    `gorm:"size:36;index:idx_items_inspection_order,priority:1;not null"`
	Label        string    `gorm:"size:500;not null"`
	Description  *string   `gorm:"type:text"`
	OrderIndex   int       `gorm:"index:idx_items_inspection_order,priority:2;not null"`
	Required     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (InspectionItem) TableName() string {
	return "inspection_items"
}

// ItemResponse is the current answer to an item. The composite unique index
// is the conflict target of the upsert.
type ItemResponse struct {
	ID               string                      `gorm:"primaryKey;size:36"`
	InspectionID     string                      `gorm:"size:36;uniqueIndex:idx_response_item,priority:1;not null"`
	InspectionItemID string                      `gorm:"size:36;uniqueIndex:idx_response_item,priority:2;not null"`
	UserID           string                      `gorm:"size:64;not null"`
	State            string                      `gorm:"size:10;not null"`
	Comment          *string                     `gorm:"type:text"`
	Photos           datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (ItemResponse) TableName() string {
	return "item_responses"
}
