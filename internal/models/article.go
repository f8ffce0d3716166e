package models

import (
	"time"

	"gorm.io/gorm"
)

// Article publication states.
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
)

// Article represents a blog article in the Inkwell application.
type Article struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"user"`
	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Status     string    `gorm:"size:20;not null;default:'draft';index" json:"status"`
	// LikeCount is denormalized and adjusted only through relative
	// server-side increments, never read-modify-write.
	LikeCount int64          `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Published reports whether the article is publicly visible.
func (a *Article) Published() bool {
	return a.Status == ArticleStatusPublished
}
