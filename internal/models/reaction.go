package models

import (
	"time"
)

// Reaction kinds.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Reaction is a user's like/dislike on exactly one target: an article XOR a
// comment. The check constraint enforces the exclusivity at the schema level;
// the partial unique indexes cap each (user, target) pair at one row and act
// as the backstop against concurrent double-inserts.
type Reaction struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	UserID    uint  `gorm:"not null;index:idx_reactions_user_article,unique,where:article_id IS NOT NULL;index:idx_reactions_user_comment,unique,where:comment_id IS NOT NULL" json:"user_id"`
	ArticleID *uint `gorm:"index:idx_reactions_user_article,unique,where:article_id IS NOT NULL;check:chk_reaction_one_target,(article_id IS NULL) <> (comment_id IS NULL)" json:"article_id,omitempty"`
	CommentID *uint `gorm:"index:idx_reactions_user_comment,unique,where:comment_id IS NOT NULL" json:"comment_id,omitempty"`
	Kind      string `gorm:"size:10;not null" json:"kind"`
	CreatedAt time.Time `json:"created_at"`

	User    User     `gorm:"foreignKey:UserID" json:"-"`
	Article *Article `gorm:"foreignKey:ArticleID" json:"-"`
	Comment *Comment `gorm:"foreignKey:CommentID" json:"-"`
}
