// Package users serves registration, login and account endpoints.
package users

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/taskboard/internal/api/middleware"
	"github.com/good-yellow-bee/taskboard/internal/api/respond"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/service"
)

// Service is the part of the user service the handler needs.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Current(ctx context.Context, callerID int64) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch, callerID int64) (*models.User, error)
	Delete(ctx context.Context, id, callerID int64) error
}

// UserResponse is a user without sensitive fields.
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Handler handles user endpoints.
type Handler struct {
	users Service
}

// NewHandler creates a new user handler.
func NewHandler(users Service) *Handler {
	return &Handler{users: users}
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token for refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateRequest is the request body for updating a user. Absent fields are
// left unchanged.
type UpdateRequest struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Register creates an account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		respond.FromError(w, "register user", err)
		return
	}

	log.Printf("user registered: %s (%d)", user.Username, user.ID)
	respond.Created(w, userToResponse(user))
}

// Login exchanges credentials for a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}
	if req.Username == "" || req.Password == "" {
		respond.Err(w, respond.BadRequest("username and password are required"))
		return
	}

	pair, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.FromError(w, "login", err)
		return
	}

	respond.OK(w, pair)
}

// Refresh rotates a refresh token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}
	if req.RefreshToken == "" {
		respond.Err(w, respond.BadRequest("refresh_token is required"))
		return
	}

	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respond.FromError(w, "refresh token", err)
		return
	}

	respond.OK(w, pair)
}

// Logout revokes a refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}
	if req.RefreshToken == "" {
		respond.Err(w, respond.BadRequest("refresh_token is required"))
		return
	}

	if err := h.users.Logout(r.Context(), req.RefreshToken); err != nil {
		respond.FromError(w, "logout", err)
		return
	}

	respond.NoContent(w)
}

// Me returns the current authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Current(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "get current user", err)
		return
	}

	respond.OK(w, userToResponse(user))
}

// List returns all users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respond.FromError(w, "list users", err)
		return
	}

	resp := make([]*UserResponse, len(users))
	for i, u := range users {
		resp[i] = userToResponse(u)
	}
	respond.OK(w, resp)
}

// GetByID returns a user by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		respond.FromError(w, "get user", err)
		return
	}

	respond.OK(w, userToResponse(user))
}

// Update updates the caller's own account.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	var req UpdateRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}

	user, err := h.users.Update(r.Context(), id, models.UserPatch{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "update user", err)
		return
	}

	log.Printf("user updated: %s (%d)", user.Username, user.ID)
	respond.OK(w, userToResponse(user))
}

// Delete deletes the caller's own account.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	if err := h.users.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		respond.FromError(w, "delete user", err)
		return
	}

	log.Printf("user deleted: %d", id)
	respond.NoContent(w)
}

func userToResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.EmailOrEmpty(),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}
