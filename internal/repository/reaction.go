package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// ErrReactionConflict indicates a concurrent insert for the same
// (user, target) pair hit the unique index. Callers retry the
// read-transition-write sequence instead of surfacing it.
var ErrReactionConflict = errors.New("reaction already exists for this user and target")

// ReactionRepository defines the interface for reaction rows.
type ReactionRepository interface {
	FindForArticle(ctx context.Context, userID, articleID uint) (*models.Reaction, error)
	FindForComment(ctx context.Context, userID, commentID uint) (*models.Reaction, error)
	// Create inserts a new reaction row; a unique-index violation is
	// translated to ErrReactionConflict.
	Create(ctx context.Context, reaction *models.Reaction) error
	// DeleteMatching removes the row only if it still has the expected
	// kind; the returned count is 0 when a concurrent toggle got there first.
	DeleteMatching(ctx context.Context, id uint, expectedKind string) (int64, error)
	// UpdateKind flips the row from expectedKind to newKind; the returned
	// count is 0 when a concurrent toggle already transitioned it.
	UpdateKind(ctx context.Context, id uint, expectedKind, newKind string) (int64, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository bound to db,
// which may be a transaction handle.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) FindForArticle(ctx context.Context, userID, articleID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ?", userID, articleID).
		First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *reactionRepository) FindForComment(ctx context.Context, userID, commentID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *reactionRepository) Create(ctx context.Context, reaction *models.Reaction) error {
	err := r.db.WithContext(ctx).Create(reaction).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrReactionConflict
	}
	return err
}

func (r *reactionRepository) DeleteMatching(ctx context.Context, id uint, expectedKind string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND kind = ?", id, expectedKind).
		Delete(&models.Reaction{})
	return result.RowsAffected, result.Error
}

func (r *reactionRepository) UpdateKind(ctx context.Context, id uint, expectedKind, newKind string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Where("id = ? AND kind = ?", id, expectedKind).
		Update("kind", newKind)
	return result.RowsAffected, result.Error
}
