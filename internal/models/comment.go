package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment moderation states.
const (
	CommentStatusPending  = "pending"
	CommentStatusApproved = "approved"
	CommentStatusRejected = "rejected"
)

// Comment represents a comment on an article.
type Comment struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Content   string  `gorm:"not null" json:"content"`
	UserID    uint    `gorm:"not null;index" json:"user_id"`
	ArticleID uint    `gorm:"not null;index" json:"article_id"`
	User      User    `gorm:"foreignKey:UserID" json:"user"`
	Article   Article `gorm:"foreignKey:ArticleID" json:"-"`
	Status    string  `gorm:"size:20;not null;default:'approved';index" json:"status"`
	// Comments count both reaction kinds; articles count likes only.
	LikeCount    int64          `gorm:"not null;default:0" json:"like_count"`
	DislikeCount int64          `gorm:"not null;default:0" json:"dislike_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Approved reports whether the comment passed moderation.
func (c *Comment) Approved() bool {
	return c.Status == CommentStatusApproved
}
