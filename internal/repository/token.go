package repository

import (
	"context"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// TokenRepository is the durable store of issued session tokens.
// Lookups are by digest only; the raw secret never reaches this layer.
type TokenRepository interface {
	Create(ctx context.Context, token *models.SessionToken) error
	// FindUsableByDigest returns the token matching digest that is active
	// and unexpired at now. Not-found, expired, and deactivated all
	// surface as gorm.ErrRecordNotFound so callers cannot distinguish them.
	FindUsableByDigest(ctx context.Context, digest string, now time.Time) (*models.SessionToken, error)
	// TouchLastUsed is a commutative write-on-read; concurrent updates are
	// last-writer-wins.
	TouchLastUsed(ctx context.Context, id uint, now time.Time) error
	Deactivate(ctx context.Context, digest string) error
	DeactivateAllForUser(ctx context.Context, userID uint) (int64, error)
	ListActiveForUser(ctx context.Context, userID uint, now time.Time) ([]*models.SessionToken, error)
	// DeleteExpiredBefore hard-deletes tokens whose expiry predates cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.SessionToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) FindUsableByDigest(ctx context.Context, digest string, now time.Time) (*models.SessionToken, error) {
	// This query runs on every authenticated request.
	defer observability.ObserveQuery("select", "session_tokens", time.Now())

	var token models.SessionToken
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("digest = ? AND active = ? AND expires_at > ?", digest, true, now).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) TouchLastUsed(ctx context.Context, id uint, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SessionToken{}).
		Where("id = ?", id).
		Update("last_used_at", now).Error
}

func (r *tokenRepository) Deactivate(ctx context.Context, digest string) error {
	// Idempotent: deactivating an already-inactive or unknown digest is a no-op.
	return r.db.WithContext(ctx).
		Model(&models.SessionToken{}).
		Where("digest = ?", digest).
		Update("active", false).Error
}

func (r *tokenRepository) DeactivateAllForUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SessionToken{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("active", false)
	return result.RowsAffected, result.Error
}

func (r *tokenRepository) ListActiveForUser(ctx context.Context, userID uint, now time.Time) ([]*models.SessionToken, error) {
	var tokens []*models.SessionToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ? AND expires_at > ?", userID, true, now).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *tokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.SessionToken{})
	return result.RowsAffected, result.Error
}
