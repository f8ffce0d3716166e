package models

import (
	"time"
)

// SecretLength is the exact length of every issued bearer secret.
// Credentials of any other length are rejected before storage access.
const SecretLength = 256

// DefaultTokenTTL is the lifetime of a freshly issued session token.
const DefaultTokenTTL = 30 * 24 * time.Hour

// SessionToken is one issued bearer credential. Only the SHA-256 digest of
// the secret is stored; the raw secret is returned to the caller exactly once
// at issuance and is never retrievable again.
type SessionToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	User       User       `gorm:"foreignKey:UserID" json:"-"`
	Digest     string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	Label      string     `gorm:"size:100;not null;default:'login token'" json:"label"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	Active     bool       `gorm:"not null;default:true;index" json:"active"`
}

// Usable reports whether the token authenticates at the given instant.
// Soft expiry works through this check even when the sweep never runs.
func (t *SessionToken) Usable(now time.Time) bool {
	return t.Active && now.Before(t.ExpiresAt)
}
