// Package projects serves the project registry endpoints.
package projects

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/taskboard/internal/api/middleware"
	"github.com/good-yellow-bee/taskboard/internal/api/respond"
	"github.com/good-yellow-bee/taskboard/internal/models"
)

// Service is the part of the project service the handler needs.
type Service interface {
	Create(ctx context.Context, ownerID int64, name, description string) (*models.Project, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.ProjectSummary, error)
	Get(ctx context.Context, id, callerID int64) (*models.ProjectDetail, error)
	Update(ctx context.Context, id int64, patch models.ProjectPatch, callerID int64) (*models.Project, error)
	Delete(ctx context.Context, id, callerID int64) error
}

// ProjectResponse is a project as returned by create and update.
type ProjectResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     int64  `json:"owner_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Handler handles project endpoints.
type Handler struct {
	projects Service
}

// NewHandler creates a new project handler.
func NewHandler(projects Service) *Handler {
	return &Handler{projects: projects}
}

// CreateRequest is the request body for creating a project.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateRequest is the request body for updating a project.
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// List returns the projects the caller owns or is a member of.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "list projects", err)
		return
	}
	respond.OK(w, projects)
}

// Create creates a project owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}

	project, err := h.projects.Create(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Description)
	if err != nil {
		respond.FromError(w, "create project", err)
		return
	}

	log.Printf("project created: %s (%d) owner=%d", project.Name, project.ID, project.OwnerID)
	respond.Created(w, projectToResponse(project))
}

// GetByID returns a project with its members and tasks.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	detail, err := h.projects.Get(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "get project", err)
		return
	}
	respond.OK(w, detail)
}

// Update updates a project (owner only).
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

	project, err := h.projects.Update(r.Context(), id, models.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
	}, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "update project", err)
		return
	}

	log.Printf("project updated: %s (%d)", project.Name, project.ID)
	respond.OK(w, projectToResponse(project))
}

// Delete deletes a project with its members and tasks (owner only).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, e := respond.PathID(r, "id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	if err := h.projects.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		respond.FromError(w, "delete project", err)
		return
	}

	log.Printf("project deleted: %d", id)
	respond.NoContent(w)
}

func projectToResponse(p *models.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
