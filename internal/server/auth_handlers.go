package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	// Identifier accepts a username or an email address.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type revokeAllRequest struct {
	Reason string `json:"reason"`
}

// tokenResponse is returned by Register and Login. The plaintext secret
// appears here and nowhere else.
type tokenResponse struct {
	Token       string       `json:"token"`
	TokenLength int          `json:"token_length"`
	User        *models.User `json:"user"`
}

// Register creates an account and logs it in immediately.
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}

	_, secret, err := s.tokenService.Issue(c.UserContext(), user.ID, "login token")
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tokenResponse{
		Token:       secret,
		TokenLength: len(secret),
		User:        user,
	})
}

// Login authenticates a username-or-email plus password pair and issues
// a fresh session token.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Identifier == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("identifier and password are required"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}

	_, secret, err := s.tokenService.Issue(c.UserContext(), user.ID, "login token")
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokenResponse{
		Token:       secret,
		TokenLength: len(secret),
		User:        user,
	})
}

// Logout revokes the session token the request authenticated with.
func (s *Server) Logout(c *fiber.Ctx) error {
	secret := credentialFromRequest(c)
	if err := s.tokenService.Revoke(c.UserContext(), secret); err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out",
	})
}

// RevokeAllTokens deactivates every session the user holds, including
// the one making this request.
func (s *Server) RevokeAllTokens(c *fiber.Ctx) error {
	var req revokeAllRequest
	// Body is optional; an empty reason is recorded as such.
	_ = c.BodyParser(&req)

	user := s.currentUser(c)
	count, err := s.tokenService.RevokeAll(c.UserContext(), user.ID, req.Reason)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"revoked": count,
	})
}

// ListTokens returns the caller's active sessions. Digests never leave
// the model's json:"-" tag.
func (s *Server) ListTokens(c *fiber.Ctx) error {
	user := s.currentUser(c)
	tokens, err := s.tokenService.ActiveTokens(c.UserContext(), user.ID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"tokens": tokens,
	})
}

// Me returns the authenticated user's own profile.
func (s *Server) Me(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(s.currentUser(c))
}
