package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"gorm.io/gorm"
)

// CategoryInput carries the writable category fields.
type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// CategoryService handles the category taxonomy. Reads are public,
// writes are restricted to admins at the handler layer.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

func validateCategoryInput(in *CategoryInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return models.NewValidationError("name is required")
	}
	if len(in.Name) > 100 {
		return models.NewValidationError("name must be at most 100 characters")
	}
	if err := validation.ValidateCategorySlug(in.Slug); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// Create stores a new category.
func (s *CategoryService) Create(ctx context.Context, in *CategoryInput) (*models.Category, error) {
	if err := validateCategoryInput(in); err != nil {
		return nil, err
	}
	category := &models.Category{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError("category name or slug already exists")
		}
		return nil, models.NewInternalError(err)
	}
	return category, nil
}

// Get fetches a category by id.
func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if category == nil {
		return nil, models.NewNotFoundError("category", id)
	}
	return category, nil
}

// GetBySlug fetches a category by its slug.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if category == nil {
		return nil, models.NewNotFoundError("category", slug)
	}
	return category, nil
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

// Update rewrites an existing category.
func (s *CategoryService) Update(ctx context.Context, id uint, in *CategoryInput) (*models.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateCategoryInput(in); err != nil {
		return nil, err
	}

	category.Name = in.Name
	category.Slug = in.Slug
	category.Description = in.Description
	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError("category name or slug already exists")
		}
		return nil, models.NewInternalError(err)
	}
	return category, nil
}

// Delete removes a category. Articles keep a dangling category_id of
// nil through the foreign key's SET NULL behavior.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
