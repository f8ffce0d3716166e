package service

import (
	"context"
	"errors"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService handles account registration, password authentication and
// account administration.
type UserService struct {
	users  repository.UserRepository
	tokens *TokenService
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, tokens *TokenService) *UserService {
	return &UserService{users: users, tokens: tokens}
}

// Register creates a new account. The first error found wins; callers
// get a single validation message at a time.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return nil, models.NewConflictError("username already taken")
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return nil, models.NewConflictError("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Active:   true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError("username or email already taken")
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// Authenticate checks a username-or-email plus password pair. Unknown
// accounts, wrong passwords and deactivated accounts all return the
// same error.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, identifier)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		user, err = s.users.GetByEmail(ctx, identifier)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	if user == nil || !user.Active {
		// Burn a hash comparison anyway so response timing does not
		// reveal whether the account exists.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$000000000000000000000uGyDyBRGPCUKxS1gGvGF4cnOP9q7Jd2a"), []byte(password))
		return nil, models.NewInvalidCredentialError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewInvalidCredentialError()
	}
	return user, nil
}

// GetByID fetches a user by id, cache-aside backed. The auth path never
// goes through here, so a cached row cannot extend a revoked session.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		found, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		user = *found
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// UpdateProfile changes the account's email and bio. An empty email
// leaves the address untouched; a nil bio leaves the bio untouched.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, email string, bio *string) (*models.User, error) {
	// Read the row directly so the update never starts from a cached copy.
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if email != "" && email != user.Email {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if existing, err := s.users.GetByEmail(ctx, email); err != nil {
			return nil, models.NewInternalError(err)
		} else if existing != nil {
			return nil, models.NewConflictError("email already registered")
		}
		user.Email = email
	}
	if bio != nil {
		user.Bio = *bio
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError("email already registered")
		}
		return nil, models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return user, nil
}

// List returns a page of accounts, admin only at the handler layer.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// SetAdmin grants or removes the admin flag.
func (s *UserService) SetAdmin(ctx context.Context, id uint, admin bool) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.users.SetAdmin(ctx, id, admin); err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// Deactivate marks the account inactive and revokes every session it
// holds. The row is kept so existing content stays attributed.
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		return models.NewInternalError(err)
	}
	if _, err := s.tokens.RevokeAll(ctx, id, "account deactivated"); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, id)
	return nil
}
