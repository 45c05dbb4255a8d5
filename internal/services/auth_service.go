package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// TokenIssuer signs access tokens for authenticated users
type TokenIssuer interface {
	Generate(userID, email, role string) (string, error)
}

// Compile-time check to ensure AuthServiceImpl implements AuthService
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthServiceImpl registers and logs in users
type AuthServiceImpl struct {
	userRepo repositories.UserRepository
	tokens   TokenIssuer
	clock    Clock
}

// NewAuthService creates a new AuthServiceImpl
func NewAuthService(userRepo repositories.UserRepository, tokens TokenIssuer, clock Clock) *AuthServiceImpl {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AuthServiceImpl{userRepo: userRepo, tokens: tokens, clock: clock}
}

// Register creates a user account and returns a token for it.
// Admin accounts cannot be self-registered.
func (s *AuthServiceImpl) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() || role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: role %q cannot be registered", ErrValidation, role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	user := &models.User{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:  strings.TrimSpace(req.FullName),
		Role:      role,
		Password:  string(hashedPassword),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		slog.Error("Failed to create user", "error", err, "email", user.Email)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User registered", "userId", user.ID.Hex(), "role", user.Role)
	return s.issue(user)
}

// Login verifies credentials and returns a token
func (s *AuthServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// GetUser returns a user by id
func (s *AuthServiceImpl) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AuthServiceImpl) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Generate(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}
