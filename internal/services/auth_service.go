package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aloskill/backend/internal/apperror"
	"github.com/aloskill/backend/internal/database/repository"
	"github.com/aloskill/backend/internal/models"
)

// RegisterInput is the data needed to create an account
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// AuthService handles authentication-related business logic
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, *models.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.User, *models.TokenPair, error)
}

type authService struct {
	userRepo   repository.UserRepository
	tokens     TokenService
	bcryptCost int
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, tokens TokenService, bcryptCost int) AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a self-assignable role and signs them in
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, *models.TokenPair, error) {
	role := input.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !role.SelfAssignable() {
		return nil, nil, apperror.New(apperror.InsufficientPermissions, "Cannot self-assign role: "+string(role))
	}

	email := normalizeEmail(input.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, apperror.New(apperror.Conflict, "User with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.Internal, "Failed to hash password", err)
	}

	user := models.NewUser(strings.TrimSpace(input.Name), email, string(hash), role)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, apperror.New(apperror.Conflict, "User with this email already exists")
		}
		return nil, nil, err
	}

	pair, err := s.tokens.GenerateTokenPair(user.Identity())
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login checks credentials. Unknown email and wrong password are reported
// the same way.
func (s *authService) Login(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, apperror.New(apperror.InvalidCredentials, "")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperror.New(apperror.InvalidCredentials, "")
	}

	pair, err := s.tokens.GenerateTokenPair(user.Identity())
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The user is
// reloaded so a role change takes effect on the next refresh.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.User, *models.TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, apperror.New(apperror.TokenMissing, "Refresh token is required")
	}

	claims, err := s.tokens.VerifyToken(refreshToken, models.TokenRefresh)
	if err != nil {
		return nil, nil, err
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.TokenInvalid, "Invalid token subject", err)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, apperror.New(apperror.TokenInvalid, "User no longer exists")
	}

	pair, err := s.tokens.GenerateTokenPair(user.Identity())
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}
