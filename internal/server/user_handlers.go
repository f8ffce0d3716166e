package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Email string  `json:"email"`
	Bio   *string `json:"bio"`
}

// UpdateMe updates the caller's own profile fields.
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user := s.currentUser(c)
	updated, err := s.userService.UpdateProfile(c.UserContext(), user.ID, req.Email, req.Bio)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(updated)
}

// GetUserProfile returns a user's public profile.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, svcErr := s.userService.GetByID(c.UserContext(), id)
	if svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// GetAllUsers returns a page of accounts, admin only.
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	users, err := s.userService.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"users":  users,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// PromoteToAdmin grants the admin flag, admin only.
func (s *Server) PromoteToAdmin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if svcErr := s.userService.SetAdmin(c.UserContext(), id, true); svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User promoted to admin",
	})
}

// DemoteFromAdmin removes the admin flag, admin only.
func (s *Server) DemoteFromAdmin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if svcErr := s.userService.SetAdmin(c.UserContext(), id, false); svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User demoted from admin",
	})
}

// DeactivateUser marks an account inactive and revokes its sessions,
// admin only. The account's content stays attributed to it.
func (s *Server) DeactivateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if svcErr := s.userService.Deactivate(c.UserContext(), id); svcErr != nil {
		return models.Respond(c, svcErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User deactivated",
	})
}
