package services

import (
	"context"
	"fmt"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"
)

// CategoryService handles book category master data. Reads are public,
// mutations are admin-only.
type CategoryService struct {
	categoryRepo repositories.CategoryRepository
	policy       AccessPolicy
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo repositories.CategoryRepository, policy AccessPolicy) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		policy:       policy,
	}
}

// CategoryInput represents create/update category input
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Create creates a new category (admin only)
func (s *CategoryService) Create(ctx context.Context, identity domain.Identity, input *CategoryInput) (*models.Category, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, fmt.Errorf("category name is required: %w", domain.ErrInvalidInput)
	}

	category := &models.Category{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, storageFailure(err)
	}
	return category, nil
}

// Update updates a category (admin only)
func (s *CategoryService) Update(ctx context.Context, identity domain.Identity, categoryID uint, input *CategoryInput) (*models.Category, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, err
	}

	category, err := s.getCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		category.Name = input.Name
	}
	category.Description = input.Description

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, storageFailure(err)
	}
	return category, nil
}

// Delete removes a category (admin only)
func (s *CategoryService) Delete(ctx context.Context, identity domain.Identity, categoryID uint) error {
	if err := s.policy.CanAdminister(identity); err != nil {
		return err
	}
	if _, err := s.getCategory(ctx, categoryID); err != nil {
		return err
	}
	if err := s.categoryRepo.Delete(ctx, categoryID); err != nil {
		return storageFailure(err)
	}
	return nil
}

// GetByID gets a category by ID (public)
func (s *CategoryService) GetByID(ctx context.Context, categoryID uint) (*models.Category, error) {
	return s.getCategory(ctx, categoryID)
}

// List lists all categories (public)
func (s *CategoryService) List(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	return categories, nil
}

func (s *CategoryService) getCategory(ctx context.Context, categoryID uint) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("category %d: %w", categoryID, domain.ErrCategoryNotFound)
		}
		return nil, storageFailure(err)
	}
	return category, nil
}
