package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCategories returns all categories.
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"categories": categories,
	})
}

// GetCategoryBySlug returns a single category by its slug.
func (s *Server) GetCategoryBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	category, err := s.categoryService.GetBySlug(c.UserContext(), slug)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(category)
}

// CreateCategory stores a new category, admin only.
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var in service.CategoryInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.Create(c.UserContext(), &in)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory rewrites a category, admin only.
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var in service.CategoryInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, svcErr := s.categoryService.Update(c.UserContext(), id, &in)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(category)
}

// DeleteCategory removes a category, admin only.
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if svcErr := s.categoryService.Delete(c.UserContext(), id); svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Category deleted",
	})
}
