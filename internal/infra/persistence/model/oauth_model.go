package model

import (
	"time"

	"github.com/google/uuid"
)

// OAuthClientModel mirrors the 'oauth_clients' table. Redirect URIs and scopes are space separated.
type OAuthClientModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClientID     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	SecretHash   string    `gorm:"type:varchar(255);not null"`
	Name         string    `gorm:"type:varchar(100);not null"`
	RedirectURIs string    `gorm:"column:redirect_uris;type:text;not null"`
	Scopes       string    `gorm:"type:text;not null"`
	CreatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (OAuthClientModel) TableName() string {
	return "oauth_clients"
}

// AuthorizationCodeModel mirrors the 'oauth_authorization_codes' table.
type AuthorizationCodeModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CodeHash    string    `gorm:"type:char(64);uniqueIndex;not null"`
	ClientID    string    `gorm:"type:varchar(64);not null"`
	UserID      uuid.UUID `gorm:"type:uuid;not null"`
	RedirectURI string    `gorm:"column:redirect_uri;type:text;not null"`
	Scope       string    `gorm:"type:text"`
	ExpiresAt   time.Time `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (AuthorizationCodeModel) TableName() string {
	return "oauth_authorization_codes"
}

// OAuthTokenModel mirrors the 'oauth_tokens' table.
type OAuthTokenModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccessTokenHash  string    `gorm:"type:char(64);uniqueIndex;not null"`
	RefreshTokenHash string    `gorm:"type:char(64);uniqueIndex;not null"`
	ClientID         string    `gorm:"type:varchar(64);not null;index"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Scope            string    `gorm:"type:text"`
	AccessExpiresAt  time.Time `gorm:"not null"`
	RefreshExpiresAt time.Time `gorm:"not null"`
	CreatedAt        time.Time
}

// TableName explicitly sets the table name for GORM.
func (OAuthTokenModel) TableName() string {
	return "oauth_tokens"
}
