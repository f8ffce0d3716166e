// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account in the Inkwell application.
// It doubles as the authenticated principal once a session token resolves.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Bio       string         `json:"bio"`
	IsAdmin   bool           `gorm:"default:false" json:"is_admin"`
	IsStaff   bool           `gorm:"default:false" json:"is_staff"`
	// Active gates authentication. Accounts referenced by tokens are
	// deactivated, never hard-deleted.
	Active    bool           `gorm:"default:true" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Articles  []Article      `gorm:"foreignKey:UserID" json:"articles,omitempty"`
}

// Elevated reports whether the user carries admin or staff privileges.
func (u *User) Elevated() bool {
	return u.IsAdmin || u.IsStaff
}
