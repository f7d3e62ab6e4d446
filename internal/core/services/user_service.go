package services

import (
	"context"
	"errors"
	"fmt"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"
)

// User administration errors
var (
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
	ErrInvalidRole         = errors.New("invalid role")
)

// UserService handles user management business logic
type UserService struct {
	userRepo repositories.UserRepository
	policy   AccessPolicy
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, policy AccessPolicy) *UserService {
	return &UserService{
		userRepo: userRepo,
		policy:   policy,
	}
}

// GetProfile returns the calling user's own account
func (s *UserService) GetProfile(ctx context.Context, identity domain.Identity) (*models.User, error) {
	return s.getUser(ctx, identity.UserID)
}

// List lists users with pagination (admin only)
func (s *UserService) List(ctx context.Context, identity domain.Identity, offset, limit int) ([]*models.User, int64, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, 0, err
	}

	users, total, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, storageFailure(err)
	}
	return users, total, nil
}

// UpdateRole changes a user's role (admin only). Admins cannot change their
// own role, so at least one admin always remains.
func (s *UserService) UpdateRole(ctx context.Context, identity domain.Identity, userID uint, role domain.Role) (*models.User, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, err
	}
	if identity.UserID == userID {
		return nil, ErrCannotChangeOwnRole
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Role = string(role)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageFailure(err)
	}

	return user, nil
}

// SetActive activates or deactivates a user account (admin only)
func (s *UserService) SetActive(ctx context.Context, identity domain.Identity, userID uint, active bool) (*models.User, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageFailure(err)
	}

	return user, nil
}

func (s *UserService) getUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrUserNotFound)
		}
		return nil, storageFailure(err)
	}
	return user, nil
}
