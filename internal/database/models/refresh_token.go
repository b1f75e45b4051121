package models

import (
	"time"
)

// Revocation reasons. Only a token consumed by rotation counts as replay
// evidence when presented again; logout- and teardown-revoked tokens do not.
const (
	RevokedReasonRotated = "rotated"
	RevokedReasonLogout  = "logout"
	RevokedReasonReplay  = "replay"
)

// RefreshToken mirrors one issued refresh token. Only the SHA-256 hex digest of
// the raw token is stored; the raw value never touches the database.
//
// Revoked rows are kept until expiry-based cleanup: a revoked row being found
// again is exactly what makes refresh-token replay detectable.
type RefreshToken struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	TokenHash     string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	ExpiresAt     time.Time `gorm:"not null;index" json:"expires_at"`
	Revoked       bool      `gorm:"not null;default:false" json:"revoked"`
	RevokedReason string    `gorm:"size:16" json:"revoked_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName overrides the table name
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
