package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table.
// Permissions are stored comma-joined, the same form the gateway propagates.
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Name         string    `gorm:"type:varchar(100);not null"`
	Role         string    `gorm:"type:varchar(20);not null"`
	Status       string    `gorm:"type:varchar(20);not null;index"`
	ClinicID     *string   `gorm:"type:varchar(64);index"`
	Permissions  string    `gorm:"type:text;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	RefreshTokens []RefreshTokenModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
