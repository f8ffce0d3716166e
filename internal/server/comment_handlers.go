package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Content string `json:"content"`
}

type commentStatusRequest struct {
	Status string `json:"status"`
}

// GetComments returns an article's approved comments plus the viewer's
// own pending ones.
func (s *Server) GetComments(c *fiber.Ctx) error {
	articleID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, svcErr := s.commentService.ListForArticle(c.UserContext(), s.currentUser(c), articleID)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"comments": comments,
	})
}

// CreateComment adds a comment to a published article.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	articleID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, svcErr := s.commentService.Create(c.UserContext(), s.currentUser(c), articleID, req.Content)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment rewrites a comment after an ownership check.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, svcErr := s.commentService.Update(c.UserContext(), s.currentUser(c), id, req.Content)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(comment)
}

// DeleteComment removes a comment after an ownership check.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if svcErr := s.commentService.Delete(c.UserContext(), s.currentUser(c), id); svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Comment deleted",
	})
}

// SetCommentStatus moves a comment through moderation, admin only.
func (s *Server) SetCommentStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req commentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, svcErr := s.commentService.SetStatus(c.UserContext(), id, req.Status)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(comment)
}

// ToggleCommentReaction toggles the caller's like or dislike on a
// comment. The like_type query parameter defaults to "like".
func (s *Server) ToggleCommentReaction(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	kind := c.Query("like_type", models.ReactionLike)
	result, svcErr := s.reactionService.ToggleComment(c.UserContext(), s.currentUser(c), id, kind)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
