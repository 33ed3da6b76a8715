// Package tasks serves the task board endpoints under /tasks.
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/good-yellow-bee/taskboard/internal/api/middleware"
	"github.com/good-yellow-bee/taskboard/internal/api/respond"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/service"
)

// Service is the part of the task service the handler needs.
type Service interface {
	Create(ctx context.Context, projectID int64, in service.TaskInput, callerID int64) (*models.Task, error)
	List(ctx context.Context, projectID int64, status string, assigneeID int64, callerID int64) ([]*models.Task, error)
	Get(ctx context.Context, projectID, taskID, callerID int64) (*models.Task, error)
	Update(ctx context.Context, projectID, taskID int64, patch models.TaskPatch, callerID int64) (*models.Task, error)
	Delete(ctx context.Context, projectID, taskID, callerID int64) error
	ListAssigned(ctx context.Context, callerID int64, status string) ([]*models.Task, error)
}

// Handler handles task endpoints.
type Handler struct {
	tasks Service
}

// NewHandler creates a new task handler.
func NewHandler(tasks Service) *Handler {
	return &Handler{tasks: tasks}
}

// CreateRequest is the request body for creating a task.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  *int64 `json:"assignee_id"`
	Status      string `json:"status"`
}

// assignee distinguishes an absent assignee_id from an explicit null.
type assignee struct {
	set bool
	id  *int64
}

func (a *assignee) UnmarshalJSON(b []byte) error {
	a.set = true
	if bytes.Equal(b, []byte("null")) {
		a.id = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	a.id = &id
	return nil
}

// UpdateRequest is the request body for updating a task. Absent fields are
// left unchanged; "assignee_id": null unassigns the task.
type UpdateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	AssigneeID  assignee `json:"assignee_id"`
}

func (req *UpdateRequest) patch() (models.TaskPatch, error) {
	p := models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		st, err := service.ValidateStatus(*req.Status)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}
	if req.AssigneeID.set {
		if req.AssigneeID.id == nil {
			p.ClearAssignee = true
		} else {
			p.AssigneeID = req.AssigneeID.id
		}
	}
	return p, nil
}

// statusQuery accepts both status_filter and status.
func statusQuery(r *http.Request) string {
	q := r.URL.Query()
	if v := q.Get("status_filter"); v != "" {
		return v
	}
	return q.Get("status")
}

func projectAndTask(r *http.Request) (int64, int64, *respond.Error) {
	projectID, e := respond.PathID(r, "project_id")
	if e != nil {
		return 0, 0, e
	}
	taskID, e := respond.PathID(r, "task_id")
	if e != nil {
		return 0, 0, e
	}
	return projectID, taskID, nil
}

// Create adds a task to a project.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, e := respond.PathID(r, "project_id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	var req CreateRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}

	task, err := h.tasks.Create(r.Context(), projectID, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		Status:      req.Status,
	}, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "create task", err)
		return
	}

	log.Printf("task created: project=%d task=%d", projectID, task.ID)
	respond.Created(w, task)
}

// List returns the tasks of a project, optionally filtered by status and
// assignee.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projectID, e := respond.PathID(r, "project_id")
	if e != nil {
		respond.Err(w, e)
		return
	}

	var assigneeID int64
	if v := r.URL.Query().Get("assignee_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			respond.Err(w, respond.BadRequest("invalid assignee_id"))
			return
		}
		assigneeID = id
	}

	tasks, err := h.tasks.List(r.Context(), projectID, statusQuery(r), assigneeID, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "list tasks", err)
		return
	}
	respond.OK(w, tasks)
}

// Get returns one task.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, taskID, e := projectAndTask(r)
	if e != nil {
		respond.Err(w, e)
		return
	}

	task, err := h.tasks.Get(r.Context(), projectID, taskID, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "get task", err)
		return
	}
	respond.OK(w, task)
}

// Update changes a task.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, taskID, e := projectAndTask(r)
	if e != nil {
		respond.Err(w, e)
		return
	}

	var req UpdateRequest
	if e := respond.Decode(w, r, &req); e != nil {
		respond.Err(w, e)
		return
	}
	patch, err := req.patch()
	if err != nil {
		respond.FromError(w, "update task", err)
		return
	}

	task, err := h.tasks.Update(r.Context(), projectID, taskID, patch, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.FromError(w, "update task", err)
		return
	}

	log.Printf("task updated: project=%d task=%d status=%s", projectID, task.ID, task.Status)
	respond.OK(w, task)
}

// Delete removes a task.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, taskID, e := projectAndTask(r)
	if e != nil {
		respond.Err(w, e)
		return
	}

	if err := h.tasks.Delete(r.Context(), projectID, taskID, middleware.GetUserID(r.Context())); err != nil {
		respond.FromError(w, "delete task", err)
		return
	}

	log.Printf("task deleted: project=%d task=%d", projectID, taskID)
	respond.NoContent(w)
}

// MyTasks returns the tasks assigned to the caller across projects.
func (h *Handler) MyTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListAssigned(r.Context(), middleware.GetUserID(r.Context()), statusQuery(r))
	if err != nil {
		respond.FromError(w, "list my tasks", err)
		return
	}
	respond.OK(w, tasks)
}
