package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/aloskill/backend/internal/apperror"
	"github.com/aloskill/backend/internal/database/repository"
	"github.com/aloskill/backend/internal/models"
)

// MaxPageSize bounds ListUsers
const MaxPageSize = 100

// UserService handles user-related business logic
type UserService interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, page, pageSize int) ([]*models.User, int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.New(apperror.NotFound, "User not found")
	}
	return user, nil
}

// ListUsers retrieves a page of users along with the total count
func (s *userService) ListUsers(ctx context.Context, page, pageSize int) ([]*models.User, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	users, err := s.userRepo.List(ctx, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return users, count, nil
}

// UpdateRole assigns role to the user
func (s *userService) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperror.New(apperror.BadRequest, "Unknown role: "+string(role))
	}

	user, err := s.userRepo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.New(apperror.NotFound, "User not found")
	}
	return user, nil
}
