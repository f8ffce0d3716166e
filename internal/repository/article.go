package repository

import (
	"context"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id uint) (*models.Article, error)
	// ListPublished serves the public index and is cache-aside backed for
	// the first page.
	ListPublished(ctx context.Context, limit, offset int) ([]*models.Article, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Article, error)
	Update(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id uint) error
	// AddLikeCount applies a relative, server-side counter adjustment
	// (counter = counter + delta). Negative deltas are guarded so the
	// counter can never go below zero.
	AddLikeCount(ctx context.Context, id uint, delta int64) error
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *models.Article) error {
	err := r.db.WithContext(ctx).Create(article).Error
	if err == nil {
		cache.Invalidate(ctx, cache.ArticleListKeyPrefix)
	}
	return err
}

func (r *articleRepository) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Category").
		First(&article, id).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *articleRepository) ListPublished(ctx context.Context, limit, offset int) ([]*models.Article, error) {
	var articles []*models.Article

	fetch := func() error {
		return r.db.WithContext(ctx).
			Preload("User").
			Preload("Category").
			Where("status = ?", models.ArticleStatusPublished).
			Order("created_at DESC").
			Limit(limit).
			Offset(offset).
			Find(&articles).Error
	}

	if offset == 0 && limit <= 20 {
		if err := cache.Aside(ctx, cache.ArticleListKeyPrefix, &articles, cache.ListTTL, fetch); err != nil {
			return nil, err
		}
		return articles, nil
	}

	if err := fetch(); err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *articleRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Article, error) {
	var articles []*models.Article
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error
	return articles, err
}

func (r *articleRepository) Update(ctx context.Context, article *models.Article) error {
	err := r.db.WithContext(ctx).Save(article).Error
	if err == nil {
		cache.InvalidateArticle(ctx, article.ID)
	}
	return err
}

func (r *articleRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&models.Article{}, id).Error
	if err == nil {
		cache.InvalidateArticle(ctx, id)
	}
	return err
}

func (r *articleRepository) AddLikeCount(ctx context.Context, id uint, delta int64) error {
	defer observability.ObserveQuery("update", "articles", time.Now())

	tx := r.db.WithContext(ctx).
		Model(&models.Article{}).
		Where("id = ?", id)
	if delta < 0 {
		tx = tx.Where("like_count >= ?", -delta)
	}
	err := tx.Update("like_count", gorm.Expr("like_count + ?", delta)).Error
	if err == nil {
		cache.InvalidateArticle(ctx, id)
	}
	return err
}
