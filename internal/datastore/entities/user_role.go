package entities

import "time"

// UserRole grants one application role to a user.
type UserRole struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:64;uniqueIndex:idx_user_role,priority:1;not null"`
	Role      string    `gorm:"size:20;uniqueIndex:idx_user_role,priority:2;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (UserRole) TableName() string {
	return "user_roles"
}
