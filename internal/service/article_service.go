package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"gorm.io/gorm"
)

// ArticleInput carries the writable article fields from the handlers.
type ArticleInput struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *uint  `json:"category_id"`
	Status     string `json:"status"`
}

// ArticleService handles article CRUD with ownership enforcement.
type ArticleService struct {
	articles   repository.ArticleRepository
	categories repository.CategoryRepository
	policy     *OwnershipPolicy
}

// NewArticleService creates an ArticleService.
func NewArticleService(articles repository.ArticleRepository, categories repository.CategoryRepository, policy *OwnershipPolicy) *ArticleService {
	return &ArticleService{articles: articles, categories: categories, policy: policy}
}

func (s *ArticleService) validateInput(ctx context.Context, in *ArticleInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return models.NewValidationError("title is required")
	}
	if len(in.Title) > 200 {
		return models.NewValidationError("title must be at most 200 characters")
	}
	if strings.TrimSpace(in.Content) == "" {
		return models.NewValidationError("content is required")
	}
	switch in.Status {
	case "", models.ArticleStatusDraft, models.ArticleStatusPublished:
	default:
		return models.NewValidationError("status must be 'draft' or 'published'")
	}
	if in.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *in.CategoryID)
		if err != nil {
			return models.NewInternalError(err)
		}
		if category == nil {
			return models.NewValidationError("category does not exist")
		}
	}
	return nil
}

// Create stores a new article owned by the author. Missing status
// defaults to draft.
func (s *ArticleService) Create(ctx context.Context, author *models.User, in *ArticleInput) (*models.Article, error) {
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}

	article := &models.Article{
		Title:      in.Title,
		Content:    in.Content,
		UserID:     author.ID,
		CategoryID: in.CategoryID,
		Status:     in.Status,
	}
	if article.Status == "" {
		article.Status = models.ArticleStatusDraft
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, models.NewInternalError(err)
	}
	return article, nil
}

// Get returns an article the viewer is allowed to see. Drafts look like
// missing rows to everyone but their author and elevated accounts.
func (s *ArticleService) Get(ctx context.Context, viewer *models.User, id uint) (*models.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("article", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !s.policy.CanView(viewer, article) {
		return nil, models.NewNotFoundError("article", id)
	}
	return article, nil
}

// ListPublished returns a page of published articles, newest first.
func (s *ArticleService) ListPublished(ctx context.Context, limit, offset int) ([]*models.Article, error) {
	articles, err := s.articles.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return articles, nil
}

// ListByAuthor returns the author's own articles including drafts.
func (s *ArticleService) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]*models.Article, error) {
	articles, err := s.articles.ListByUser(ctx, authorID, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return articles, nil
}

// Update applies the input to an existing article after an ownership
// check.
func (s *ArticleService) Update(ctx context.Context, actor *models.User, id uint, in *ArticleInput) (*models.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("article", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if d := s.policy.CanMutate(actor, article); d != DecisionAllow {
		return nil, s.policy.Deny(ctx, actor, d, "article", id)
	}
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}

	article.Title = in.Title
	article.Content = in.Content
	article.CategoryID = in.CategoryID
	if in.Status != "" {
		article.Status = in.Status
	}
	if err := s.articles.Update(ctx, article); err != nil {
		return nil, models.NewInternalError(err)
	}
	return article, nil
}

// Delete soft-deletes an article after an ownership check.
func (s *ArticleService) Delete(ctx context.Context, actor *models.User, id uint) error {
	article, err := s.articles.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError("article", id)
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	if d := s.policy.CanMutate(actor, article); d != DecisionAllow {
		return s.policy.Deny(ctx, actor, d, "article", id)
	}
	if err := s.articles.Delete(ctx, id); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
