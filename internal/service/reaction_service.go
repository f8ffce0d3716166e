package service

import (
	"context"
	"errors"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Toggle actions reported to clients.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
	ActionChanged = "changed"
)

// ToggleResult describes the outcome of a reaction toggle together with
// the target's counters after the change.
type ToggleResult struct {
	Action       string `json:"action"`
	Kind         string `json:"kind"`
	LikeCount    int64  `json:"like_count"`
	DislikeCount int64  `json:"dislike_count"`
}

// ReactionService applies the toggle semantics for likes and dislikes.
// Each toggle runs in a single transaction so the reaction row and the
// denormalized counters move together.
type ReactionService struct {
	db       *gorm.DB
	articles repository.ArticleRepository
	comments repository.CommentRepository
	policy   *OwnershipPolicy
}

// NewReactionService creates a ReactionService.
func NewReactionService(db *gorm.DB, articles repository.ArticleRepository, comments repository.CommentRepository, policy *OwnershipPolicy) *ReactionService {
	return &ReactionService{
		db:       db,
		articles: articles,
		comments: comments,
		policy:   policy,
	}
}

func validKind(kind string) bool {
	return kind == models.ReactionLike || kind == models.ReactionDislike
}

// ToggleArticle toggles the user's reaction on an article. Articles
// accept likes only.
func (s *ReactionService) ToggleArticle(ctx context.Context, user *models.User, articleID uint, kind string) (*ToggleResult, error) {
	span, ctx := observability.NewSpan(ctx, "reaction.toggle")
	span.AddAttributes(
		attribute.String("reaction.target", "article"),
		attribute.String("reaction.kind", kind),
		attribute.Int64("article.id", int64(articleID)),
	)
	defer span.End()

	if !validKind(kind) {
		return nil, models.NewInvalidKindError("like_type must be 'like' or 'dislike'")
	}
	if kind == models.ReactionDislike {
		return nil, models.NewInvalidKindError("articles can only be liked")
	}

	article, err := s.articles.GetByID(ctx, articleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("article", articleID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !s.policy.CanView(user, article) {
		return nil, models.NewNotFoundError("article", articleID)
	}
	if !article.Published() {
		return nil, models.NewTargetNotEligibleError("article is not published")
	}

	toggle := func(tx *gorm.DB) (string, error) {
		reactions := repository.NewReactionRepository(tx)
		articles := repository.NewArticleRepository(tx)

		existing, err := reactions.FindForArticle(ctx, user.ID, articleID)
		if err != nil {
			return "", err
		}
		if existing == nil {
			reaction := &models.Reaction{UserID: user.ID, ArticleID: &articleID, Kind: kind}
			if err := reactions.Create(ctx, reaction); err != nil {
				return "", err
			}
			return ActionAdded, articles.AddLikeCount(ctx, articleID, 1)
		}

		rows, err := reactions.DeleteMatching(ctx, existing.ID, existing.Kind)
		if err != nil {
			return "", err
		}
		if rows == 0 {
			return "", repository.ErrReactionConflict
		}
		return ActionRemoved, articles.AddLikeCount(ctx, articleID, -1)
	}

	action, err := s.runToggle(ctx, toggle)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	updated, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	span.AddAttributes(attribute.String("reaction.action", action))
	observability.ReactionToggles.WithLabelValues("article", action).Inc()
	return &ToggleResult{Action: action, Kind: kind, LikeCount: updated.LikeCount}, nil
}

// ToggleComment toggles the user's reaction on a comment. Comments
// accept both likes and dislikes; presenting the opposite kind switches
// the existing reaction in place.
func (s *ReactionService) ToggleComment(ctx context.Context, user *models.User, commentID uint, kind string) (*ToggleResult, error) {
	span, ctx := observability.NewSpan(ctx, "reaction.toggle")
	span.AddAttributes(
		attribute.String("reaction.target", "comment"),
		attribute.String("reaction.kind", kind),
		attribute.Int64("comment.id", int64(commentID)),
	)
	defer span.End()

	if !validKind(kind) {
		return nil, models.NewInvalidKindError("like_type must be 'like' or 'dislike'")
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("comment", commentID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !s.policy.CanView(user, comment) {
		return nil, models.NewNotFoundError("comment", commentID)
	}
	if !comment.Approved() {
		return nil, models.NewTargetNotEligibleError("comment is not approved")
	}

	toggle := func(tx *gorm.DB) (string, error) {
		reactions := repository.NewReactionRepository(tx)
		comments := repository.NewCommentRepository(tx)

		existing, err := reactions.FindForComment(ctx, user.ID, commentID)
		if err != nil {
			return "", err
		}
		if existing == nil {
			reaction := &models.Reaction{UserID: user.ID, CommentID: &commentID, Kind: kind}
			if err := reactions.Create(ctx, reaction); err != nil {
				return "", err
			}
			if kind == models.ReactionLike {
				return ActionAdded, comments.AddReactionCounts(ctx, commentID, 1, 0)
			}
			return ActionAdded, comments.AddReactionCounts(ctx, commentID, 0, 1)
		}

		if existing.Kind == kind {
			rows, err := reactions.DeleteMatching(ctx, existing.ID, existing.Kind)
			if err != nil {
				return "", err
			}
			if rows == 0 {
				return "", repository.ErrReactionConflict
			}
			if kind == models.ReactionLike {
				return ActionRemoved, comments.AddReactionCounts(ctx, commentID, -1, 0)
			}
			return ActionRemoved, comments.AddReactionCounts(ctx, commentID, 0, -1)
		}

		rows, err := reactions.UpdateKind(ctx, existing.ID, existing.Kind, kind)
		if err != nil {
			return "", err
		}
		if rows == 0 {
			return "", repository.ErrReactionConflict
		}
		if kind == models.ReactionLike {
			return ActionChanged, comments.AddReactionCounts(ctx, commentID, 1, -1)
		}
		return ActionChanged, comments.AddReactionCounts(ctx, commentID, -1, 1)
	}

	action, err := s.runToggle(ctx, toggle)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	updated, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	span.AddAttributes(attribute.String("reaction.action", action))
	observability.ReactionToggles.WithLabelValues("comment", action).Inc()
	return &ToggleResult{
		Action:       action,
		Kind:         kind,
		LikeCount:    updated.LikeCount,
		DislikeCount: updated.DislikeCount,
	}, nil
}

// runToggle runs fn in a transaction and retries once when a concurrent
// toggle for the same (user, target) pair raced it. The retry re-reads
// the reaction state, so both interleavings settle on a valid outcome.
func (s *ReactionService) runToggle(ctx context.Context, fn func(tx *gorm.DB) (string, error)) (string, error) {
	var action string

	run := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			action, err = fn(tx)
			return err
		})
	}

	err := run()
	if errors.Is(err, repository.ErrReactionConflict) {
		err = run()
	}
	if err != nil {
		if errors.Is(err, repository.ErrReactionConflict) {
			return "", models.NewConflictError("reaction was modified concurrently, please retry")
		}
		return "", models.NewInternalError(err)
	}
	return action, nil
}
