package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/taskboard/internal/api/middleware"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/service"
)

// mockService records the arguments it was called with.
type mockService struct {
	tasks []*models.Task

	gotStatus   string
	gotAssignee int64
	gotCaller   int64
	gotPatch    models.TaskPatch
	gotInput    service.TaskInput
}

func notFound() error {
	return &service.Error{Kind: service.ErrNotFound, Message: "Task not found"}
}

func (m *mockService) find(projectID, taskID int64) *models.Task {
	for _, t := range m.tasks {
		if t.ID == taskID && t.ProjectID == projectID {
			return t
		}
	}
	return nil
}

func (m *mockService) Create(ctx context.Context, projectID int64, in service.TaskInput, callerID int64) (*models.Task, error) {
	m.gotInput = in
	m.gotCaller = callerID
	t := models.NewTask(projectID, in.Title, in.Description, in.AssigneeID)
	t.ID = int64(len(m.tasks) + 1)
	m.tasks = append(m.tasks, t)
	return t, nil
}

func (m *mockService) List(ctx context.Context, projectID int64, status string, assigneeID int64, callerID int64) ([]*models.Task, error) {
	m.gotStatus = status
	m.gotAssignee = assigneeID
	m.gotCaller = callerID
	out := []*models.Task{}
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockService) Get(ctx context.Context, projectID, taskID, callerID int64) (*models.Task, error) {
	if t := m.find(projectID, taskID); t != nil {
		return t, nil
	}
	return nil, notFound()
}

func (m *mockService) Update(ctx context.Context, projectID, taskID int64, patch models.TaskPatch, callerID int64) (*models.Task, error) {
	m.gotPatch = patch
	t := m.find(projectID, taskID)
	if t == nil {
		return nil, notFound()
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	return t, nil
}

func (m *mockService) Delete(ctx context.Context, projectID, taskID, callerID int64) error {
	if m.find(projectID, taskID) == nil {
		return notFound()
	}
	return nil
}

func (m *mockService) ListAssigned(ctx context.Context, callerID int64, status string) ([]*models.Task, error) {
	m.gotCaller = callerID
	m.gotStatus = status
	return []*models.Task{}, nil
}

func seeded() *mockService {
	return &mockService{tasks: []*models.Task{
		{ID: 1, ProjectID: 1, Title: "Write docs", Status: models.StatusTodo},
		{ID: 2, ProjectID: 2, Title: "Other project", Status: models.StatusDone},
	}}
}

func newRequest(method, target, body string, params map[string]string, callerID int64) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if callerID != 0 {
		ctx = middleware.WithUser(ctx, callerID, "caller")
	}
	return req.WithContext(ctx)
}

func TestCreate(t *testing.T) {
	svc := &mockService{}
	handler := NewHandler(svc)

	body := `{"title": "Ship it", "description": "soon", "assignee_id": 3}`
	rec := httptest.NewRecorder()
	handler.Create(rec, newRequest("POST", "/tasks/1/tasks/", body, map[string]string{"project_id": "1"}, 5))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if svc.gotCaller != 5 {
		t.Errorf("caller = %d, want 5", svc.gotCaller)
	}
	if svc.gotInput.AssigneeID == nil || *svc.gotInput.AssigneeID != 3 {
		t.Errorf("assignee = %v, want 3", svc.gotInput.AssigneeID)
	}

	var resp struct {
		Data *models.Task `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Title != "Ship it" || resp.Data.ProjectID != 1 {
		t.Errorf("task = %+v", resp.Data)
	}
}

func TestList_QueryFilters(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		wantStatus   string
		wantAssignee int64
		wantCode     int
	}{
		{"no filters", "/tasks/1/tasks/", "", 0, http.StatusOK},
		{"status_filter", "/tasks/1/tasks/?status_filter=Done", "Done", 0, http.StatusOK},
		{"status alias", "/tasks/1/tasks/?status=in_progress", "in_progress", 0, http.StatusOK},
		{"assignee", "/tasks/1/tasks/?assignee_id=4", "", 4, http.StatusOK},
		{"bad assignee", "/tasks/1/tasks/?assignee_id=x", "", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := seeded()
			handler := NewHandler(svc)

			rec := httptest.NewRecorder()
			handler.List(rec, newRequest("GET", tt.target, "", map[string]string{"project_id": "1"}, 0))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if svc.gotStatus != tt.wantStatus {
				t.Errorf("status filter = %q, want %q", svc.gotStatus, tt.wantStatus)
			}
			if svc.gotAssignee != tt.wantAssignee {
				t.Errorf("assignee filter = %d, want %d", svc.gotAssignee, tt.wantAssignee)
			}

			var resp struct {
				Data []*models.Task `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(resp.Data) != 1 {
				t.Errorf("items count = %d, want 1", len(resp.Data))
			}
		})
	}
}

func TestGet_WrongProject(t *testing.T) {
	handler := NewHandler(seeded())

	rec := httptest.NewRecorder()
	handler.Get(rec, newRequest("GET", "/tasks/1/tasks/2", "", map[string]string{"project_id": "1", "task_id": "2"}, 5))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUpdate_Patch(t *testing.T) {
	params := map[string]string{"project_id": "1", "task_id": "1"}

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantClear bool
		wantID    int64
		wantState models.TaskStatus
	}{
		{"status only", `{"status": "In Progress"}`, http.StatusOK, false, 0, models.StatusInProgress},
		{"assign", `{"assignee_id": 9}`, http.StatusOK, false, 9, ""},
		{"unassign", `{"assignee_id": null}`, http.StatusOK, true, 0, ""},
		{"bad status", `{"status": "Blocked"}`, http.StatusBadRequest, false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := seeded()
			handler := NewHandler(svc)

			rec := httptest.NewRecorder()
			handler.Update(rec, newRequest("PUT", "/tasks/1/tasks/1", tt.body, params, 5))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			p := svc.gotPatch
			if p.ClearAssignee != tt.wantClear {
				t.Errorf("ClearAssignee = %v, want %v", p.ClearAssignee, tt.wantClear)
			}
			if tt.wantID != 0 && (p.AssigneeID == nil || *p.AssigneeID != tt.wantID) {
				t.Errorf("AssigneeID = %v, want %d", p.AssigneeID, tt.wantID)
			}
			if tt.wantID == 0 && p.AssigneeID != nil {
				t.Errorf("AssigneeID = %d, want nil", *p.AssigneeID)
			}
			if tt.wantState != "" && (p.Status == nil || *p.Status != tt.wantState) {
				t.Errorf("Status = %v, want %q", p.Status, tt.wantState)
			}
			if tt.wantState == "" && p.Status != nil {
				t.Errorf("Status = %q, want nil", *p.Status)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	handler := NewHandler(seeded())

	rec := httptest.NewRecorder()
	handler.Delete(rec, newRequest("DELETE", "/tasks/1/tasks/1", "", map[string]string{"project_id": "1", "task_id": "1"}, 5))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = httptest.NewRecorder()
	handler.Delete(rec, newRequest("DELETE", "/tasks/1/tasks/7", "", map[string]string{"project_id": "1", "task_id": "7"}, 5))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMyTasks(t *testing.T) {
	svc := seeded()
	handler := NewHandler(svc)

	rec := httptest.NewRecorder()
	handler.MyTasks(rec, newRequest("GET", "/tasks/my-tasks?status_filter=todo", "", nil, 5))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.gotCaller != 5 || svc.gotStatus != "todo" {
		t.Errorf("caller = %d status = %q", svc.gotCaller, svc.gotStatus)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want empty list", rec.Body.String())
	}
}
