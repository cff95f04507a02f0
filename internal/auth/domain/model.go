// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// App-level roles. Coarser than organization roles and independent of
// any membership: exactly one per user.
const (
	AppRoleUser  = "user"
	AppRoleAdmin = "admin"
)

// ValidAppRole reports whether the tag names a known app role.
func ValidAppRole(role string) bool {
	return role == AppRoleUser || role == AppRoleAdmin
}

// User represents a system user account.
type User struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	ExternalID          string            `gorm:"type:text;not null;uniqueIndex" json:"external_id"`
	Provider            string            `gorm:"type:text;not null" json:"-"`
	DisplayName         string            `gorm:"type:text;not null" json:"name"`
	Email               string            `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash        *string           `gorm:"type:text" json:"-"`
	Role                string            `gorm:"type:text;not null;default:user" json:"role"`
	EmailVerified       bool              `gorm:"column:email_verified" json:"email_verified"`
	Banned              bool              `gorm:"column:banned" json:"banned"`
	BanReason           *string           `gorm:"column:ban_reason" json:"ban_reason,omitempty"`
	BanExpires          *time.Time        `gorm:"column:ban_expires" json:"ban_expires,omitempty"`
	LastPasswordChanged *time.Time        `gorm:"column:last_password_changed" json:"-"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb" json:"-"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Token purposes for one-time tokens.
const (
	TokenPurposePasswordReset = "password_reset"
	TokenPurposeEmailVerify   = "email_verify"
)

// Token is a single-use token for password reset or email verification.
// Only the hash is stored; the raw value goes out in the email link.
type Token struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     snowflake.ID `gorm:"column:user_id;not null;index"`
	Purpose    string       `gorm:"type:text;not null"`
	TokenHash  string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	ExpiresAt  time.Time    `gorm:"column:expires_at;not null"`
	ConsumedAt *time.Time   `gorm:"column:consumed_at"`
	CreatedAt  time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Token) TableName() string { return "auth_tokens" }
