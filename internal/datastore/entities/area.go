package entities

import "time"

// Area is a physical area (warehouse bay, production line) that is inspected.
type Area struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Name          string    `gorm:"size:200;not null"`
	Description   *string   `gorm:"type:text"`
	Location      *string   `gorm:"size:200"`
	ResponsibleID *string   `gorm:"size:64;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Area) TableName() string {
	return "areas"
}
