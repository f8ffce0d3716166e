package repository

import (
	"context"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// ListByArticle returns approved comments, plus the viewer's own
	// pending ones when viewerID is non-zero.
	ListByArticle(ctx context.Context, articleID uint, viewerID uint) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
	SetStatus(ctx context.Context, id uint, status string) error
	// AddReactionCounts applies relative counter adjustments in a single
	// statement. Negative deltas are guarded against underflow.
	AddReactionCounts(ctx context.Context, id uint, likeDelta, dislikeDelta int64) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByArticle(ctx context.Context, articleID uint, viewerID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("article_id = ?", articleID)
	if viewerID != 0 {
		q = q.Where("status = ? OR user_id = ?", models.CommentStatusApproved, viewerID)
	} else {
		q = q.Where("status = ?", models.CommentStatusApproved)
	}
	err := q.Order("created_at DESC").Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error
}

func (r *commentRepository) SetStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *commentRepository) AddReactionCounts(ctx context.Context, id uint, likeDelta, dislikeDelta int64) error {
	updates := map[string]interface{}{}
	tx := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id)

	if likeDelta != 0 {
		updates["like_count"] = gorm.Expr("like_count + ?", likeDelta)
		if likeDelta < 0 {
			tx = tx.Where("like_count >= ?", -likeDelta)
		}
	}
	if dislikeDelta != 0 {
		updates["dislike_count"] = gorm.Expr("dislike_count + ?", dislikeDelta)
		if dislikeDelta < 0 {
			tx = tx.Where("dislike_count >= ?", -dislikeDelta)
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Updates(updates).Error
}
