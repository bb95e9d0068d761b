package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mvannucci/paperbroker/internal/crypto"
	"github.com/mvannucci/paperbroker/internal/domain"
)

// UserService manages account owners. Passwords are hashed with bcrypt at
// registration; there is no login flow in this service.
type UserService struct {
	users  domain.UserStore
	logger *slog.Logger
}

// NewUserService creates a UserService with all required dependencies.
func NewUserService(users domain.UserStore, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// Register creates a new user with a bcrypt password hash. Duplicate emails
// map to ErrAlreadyExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("user_service: register: invalid email %q", email)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("user_service: register: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("user_service: register %s: %w", email, err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", email))
	return user, nil
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns users with pagination.
func (s *UserService) List(ctx context.Context, opts domain.ListOpts) ([]domain.User, error) {
	return s.users.List(ctx, opts)
}
