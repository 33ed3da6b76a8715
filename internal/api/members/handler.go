// Package members serves project membership endpoints.
package members

import (
	"context"
	"log"
	"net/http"

	"github.com/good-yellow-bee/taskboard/internal/api/middleware"
	"github.com/good-yellow-bee/taskboard/internal/api/respond"
	"github.com/good-yellow-bee/taskboard/internal/models"
)

// Service is the part of the membership service the handler needs.
type Service interface {
	List(ctx context.Context, projectID, callerID int64) ([]*models.ProjectMember, error)
	Add(ctx context.Context, projectID, userID int64, role string, callerID int64) (*models.ProjectMember, error)
	UpdateRole(ctx context.Context, projectID, memberID int64, role string, callerID int64) (*models.ProjectMember, error)
	Remove(ctx context.Context, projectID, memberID, callerID int64) error
}

// Handler handles /projects/{id}/members endpoints.
type Handler struct {
	members Service
}

// NewHandler creates a new membership handler.
func NewHandler(members Service) *Handler {
	return &Handler{members: members}
}

// AddRequest is the request body for adding a member.
type AddRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRequest is the request body for changing a member's role.
type UpdateRequest struct {
	Role string `json:"role"`
}

// List returns the members of a project (owner or member).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projectID, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	members, err := h.members.List(r.Context(), projectID, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "list members", err)
		return
	}
	respond.OK(w, members)
}

// Add adds a user to a project (owner only).
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	projectID, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	var req AddRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}
	if req.UserID <= 0 {
		respond.Err(w, respond.BadRequest("user_id is required"))
		return
	}

	member, err := h.members.Add(r.Context(), projectID, req.UserID, req.Role, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "add member", err)
		return
	}

	log.Printf("member added: project=%d user=%d role=%s", projectID, member.UserID, member.Role)
	respond.Created(w, member)
}

// Update changes a member's role (owner only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}
	memberID, e := respond.PathID(r, "member_id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	var req UpdateRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}

	member, err := h.members.UpdateRole(r.Context(), projectID, memberID, req.Role, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "update member", err)
		return
	}

	log.Printf("member role changed: project=%d member=%d role=%s", projectID, memberID, member.Role)
	respond.OK(w, member)
}

// Remove removes a member from a project (owner only).
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	projectID, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}
	memberID, e := respond.PathID(r, "member_id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	if err := h.members.Remove(r.Context(), projectID, memberID, middleware.GetUserID(r.Context())); err != nil {
		respond.FromError(w, "remove member", err)
		return
	}

	log.Printf("member removed: project=%d member=%d", projectID, memberID)
	respond.NoContent(w)
}
