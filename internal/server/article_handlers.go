package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetArticles returns a page of published articles, newest first.
func (s *Server) GetArticles(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	articles, err := s.articleService.ListPublished(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"articles": articles,
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}

// GetArticle returns a single article. Drafts are visible only to their
// author and to elevated accounts.
func (s *Server) GetArticle(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	article, svcErr := s.articleService.Get(c.UserContext(), s.currentUser(c), id)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(article)
}

// GetMyArticles returns the caller's own articles including drafts.
func (s *Server) GetMyArticles(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	user := s.currentUser(c)
	articles, err := s.articleService.ListByAuthor(c.UserContext(), user.ID, p.Limit, p.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"articles": articles,
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}

// CreateArticle stores a new article owned by the caller.
func (s *Server) CreateArticle(c *fiber.Ctx) error {
	var in service.ArticleInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	article, err := s.articleService.Create(c.UserContext(), s.currentUser(c), &in)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

// UpdateArticle rewrites an article after an ownership check.
func (s *Server) UpdateArticle(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var in service.ArticleInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	article, svcErr := s.articleService.Update(c.UserContext(), s.currentUser(c), id, &in)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(article)
}

// DeleteArticle removes an article after an ownership check.
func (s *Server) DeleteArticle(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if svcErr := s.articleService.Delete(c.UserContext(), s.currentUser(c), id); svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Article deleted",
	})
}

// ToggleArticleReaction toggles the caller's like on an article. The
// like_type query parameter defaults to "like"; articles reject
// dislikes.
func (s *Server) ToggleArticleReaction(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	kind := c.Query("like_type", models.ReactionLike)
	result, svcErr := s.reactionService.ToggleArticle(c.UserContext(), s.currentUser(c), id, kind)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
