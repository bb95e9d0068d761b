package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// UserService defines the methods the user handler requires.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (domain.User, error)
	Get(ctx context.Context, id int64) (domain.User, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.User, error)
}

// UserAccounts lists the accounts owned by a user.
type UserAccounts interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Account, error)
}

// UserHandler serves user-related HTTP endpoints.
type UserHandler struct {
	users    UserService
	accounts UserAccounts
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler with the given services and logger.
func NewUserHandler(users UserService, accounts UserAccounts, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, accounts: accounts, logger: logger}
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUser registers a new user.
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create user failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// GetUser returns one user by id.
// GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsers returns users with pagination.
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list users failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// ListUserAccounts returns the accounts owned by a user.
// GET /api/users/{id}/accounts
func (h *UserHandler) ListUserAccounts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	accounts, err := h.accounts.ListByUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}
