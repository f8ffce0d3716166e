package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"gorm.io/gorm"
)

// CommentService handles comments on articles.
type CommentService struct {
	comments repository.CommentRepository
	articles repository.ArticleRepository
	policy   *OwnershipPolicy
}

// NewCommentService creates a CommentService.
func NewCommentService(comments repository.CommentRepository, articles repository.ArticleRepository, policy *OwnershipPolicy) *CommentService {
	return &CommentService{comments: comments, articles: articles, policy: policy}
}

// Create adds a comment to a published article. Comments land approved;
// moderation can demote them afterwards.
func (s *CommentService) Create(ctx context.Context, author *models.User, articleID uint, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("content is required")
	}
	if len(content) > 5000 {
		return nil, models.NewValidationError("content must be at most 5000 characters")
	}

	article, err := s.articles.GetByID(ctx, articleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("article", articleID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !s.policy.CanView(author, article) {
		return nil, models.NewNotFoundError("article", articleID)
	}
	if !article.Published() {
		return nil, models.NewTargetNotEligibleError("article does not accept comments yet")
	}

	comment := &models.Comment{
		Content:   content,
		UserID:    author.ID,
		ArticleID: articleID,
		Status:    models.CommentStatusApproved,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}

// Get returns a comment the viewer may see.
func (s *CommentService) Get(ctx context.Context, viewer *models.User, id uint) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("comment", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !s.policy.CanView(viewer, comment) {
		return nil, models.NewNotFoundError("comment", id)
	}
	return comment, nil
}

// ListForArticle returns the article's approved comments plus the
// viewer's own pending ones.
func (s *CommentService) ListForArticle(ctx context.Context, viewer *models.User, articleID uint) ([]*models.Comment, error) {
	article, err := s.articles.GetByID(ctx, articleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("article", articleID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !s.policy.CanView(viewer, article) {
		return nil, models.NewNotFoundError("article", articleID)
	}

	var viewerID uint
	if viewer != nil {
		viewerID = viewer.ID
	}
	comments, err := s.comments.ListByArticle(ctx, articleID, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// Update rewrites a comment's content after an ownership check.
func (s *CommentService) Update(ctx context.Context, actor *models.User, id uint, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("content is required")
	}

	comment, err := s.comments.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("comment", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if d := s.policy.CanMutate(actor, comment); d != DecisionAllow {
		return nil, s.policy.Deny(ctx, actor, d, "comment", id)
	}

	comment.Content = content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}

// Delete removes a comment after an ownership check.
func (s *CommentService) Delete(ctx context.Context, actor *models.User, id uint) error {
	comment, err := s.comments.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError("comment", id)
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	if d := s.policy.CanMutate(actor, comment); d != DecisionAllow {
		return s.policy.Deny(ctx, actor, d, "comment", id)
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SetStatus moves a comment through moderation. Handlers restrict this
// to elevated accounts.
func (s *CommentService) SetStatus(ctx context.Context, id uint, status string) (*models.Comment, error) {
	switch status {
	case models.CommentStatusPending, models.CommentStatusApproved, models.CommentStatusRejected:
	default:
		return nil, models.NewValidationError("status must be 'pending', 'approved' or 'rejected'")
	}

	comment, err := s.comments.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("comment", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.comments.SetStatus(ctx, id, status); err != nil {
		return nil, models.NewInternalError(err)
	}
	comment.Status = status
	return comment, nil
}
