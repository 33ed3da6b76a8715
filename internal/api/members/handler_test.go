package members

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

const ownerID = 1

// mockService models one project (id 1) owned by user 1.
type mockService struct {
	members []*models.ProjectMember
	nextID  int64
}

func forbidden() error {
	return &service.Error{Kind: service.ErrForbidden, Message: "Not authorized to manage members of this project"}
}

func (m *mockService) check(projectID int64) error {
	if projectID != 1 {
		return &service.Error{Kind: service.ErrNotFound, Message: "Project not found"}
	}
	return nil
}

func (m *mockService) List(ctx context.Context, projectID, callerID int64) ([]*models.ProjectMember, error) {
	if err := m.check(projectID); err != nil {
		return nil, err
	}
	if callerID != ownerID && m.byUser(callerID) == nil {
		return nil, forbidden()
	}
	return m.members, nil
}

func (m *mockService) byUser(userID int64) *models.ProjectMember {
	for _, pm := range m.members {
		if pm.UserID == userID {
			return pm
		}
	}
	return nil
}

func (m *mockService) byID(id int64) *models.ProjectMember {
	for _, pm := range m.members {
		if pm.ID == id {
			return pm
		}
	}
	return nil
}

func (m *mockService) Add(ctx context.Context, projectID, userID int64, role string, callerID int64) (*models.ProjectMember, error) {
	if err := m.check(projectID); err != nil {
		return nil, err
	}
	if callerID != ownerID {
		return nil, forbidden()
	}
	if userID == ownerID || m.byUser(userID) != nil {
		return nil, &service.Error{Kind: service.ErrAlreadyMember, Message: "User is already a member of this project"}
	}
	if role == "" {
		role = string(models.RoleMember)
	}
	m.nextID++
	pm := models.NewProjectMember(projectID, userID, models.Role(role))
	pm.ID = m.nextID
	m.members = append(m.members, pm)
	return pm, nil
}

func (m *mockService) UpdateRole(ctx context.Context, projectID, memberID int64, role string, callerID int64) (*models.ProjectMember, error) {
	if err := m.check(projectID); err != nil {
		return nil, err
	}
	if callerID != ownerID {
		return nil, forbidden()
	}
	pm := m.byID(memberID)
	if pm == nil {
		return nil, &service.Error{Kind: service.ErrNotFound, Message: "Member not found"}
	}
	pm.Role = models.Role(role)
	return pm, nil
}

func (m *mockService) Remove(ctx context.Context, projectID, memberID, callerID int64) error {
	if err := m.check(projectID); err != nil {
		return err
	}
	if callerID != ownerID {
		return forbidden()
	}
	for i, pm := range m.members {
		if pm.ID == memberID {
			m.members = append(m.members[:i], m.members[i+1:]...)
			return nil
		}
	}
	return &service.Error{Kind: service.ErrNotFound, Message: "Member not found"}
}

func newRequest(method, body string, params map[string]string, callerID int64) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/projects/1/members", nil)
	} else {
		req = httptest.NewRequest(method, "/projects/1/members", strings.NewReader(body))
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithUser(ctx, callerID, "caller")
	return req.WithContext(ctx)
}

func TestAdd(t *testing.T) {
	svc := &mockService{}
	handler := NewHandler(svc)
	params := map[string]string{"id": "1"}

	rec := httptest.NewRecorder()
	handler.Add(rec, newRequest("POST", `{"user_id": 2}`, params, ownerID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data *models.ProjectMember `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.UserID != 2 || resp.Data.Role != models.RoleMember {
		t.Errorf("member = %+v", resp.Data)
	}

	rec = httptest.NewRecorder()
	handler.Add(rec, newRequest("POST", `{"user_id": 2, "role": "admin"}`, params, ownerID))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "ALREADY_MEMBER") {
		t.Errorf("duplicate: body = %s", rec.Body.String())
	}
}

func TestAdd_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		params     map[string]string
		body       string
		callerID   int64
		wantStatus int
	}{
		{"missing user_id", map[string]string{"id": "1"}, `{}`, ownerID, http.StatusBadRequest},
		{"non-owner", map[string]string{"id": "1"}, `{"user_id": 3}`, 2, http.StatusForbidden},
		{"unknown project", map[string]string{"id": "9"}, `{"user_id": 3}`, ownerID, http.StatusNotFound},
		{"bad project id", map[string]string{"id": "x"}, `{"user_id": 3}`, ownerID, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(&mockService{})

			rec := httptest.NewRecorder()
			handler.Add(rec, newRequest("POST", tt.body, tt.params, tt.callerID))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestList(t *testing.T) {
	svc := &mockService{}
	svc.Add(context.Background(), 1, 2, "member", ownerID)
	handler := NewHandler(svc)

	for _, caller := range []int64{ownerID, 2} {
		rec := httptest.NewRecorder()
		handler.List(rec, newRequest("GET", "", map[string]string{"id": "1"}, caller))
		if rec.Code != http.StatusOK {
			t.Errorf("caller %d: status = %d, want %d", caller, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	handler.List(rec, newRequest("GET", "", map[string]string{"id": "1"}, 3))
	if rec.Code != http.StatusForbidden {
		t.Errorf("stranger: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestUpdateAndRemove(t *testing.T) {
	svc := &mockService{}
	pm, _ := svc.Add(context.Background(), 1, 2, "member", ownerID)
	handler := NewHandler(svc)
	params := map[string]string{"id": "1", "member_id": "1"}

	rec := httptest.NewRecorder()
	handler.Update(rec, newRequest("PUT", `{"role": "admin"}`, params, 2))
	if rec.Code != http.StatusForbidden {
		t.Errorf("member update: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = httptest.NewRecorder()
	handler.Update(rec, newRequest("PUT", `{"role": "admin"}`, params, ownerID))
	if rec.Code != http.StatusOK {
		t.Fatalf("owner update: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if pm.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", pm.Role)
	}

	rec = httptest.NewRecorder()
	handler.Remove(rec, newRequest("DELETE", "", params, 2))
	if rec.Code != http.StatusForbidden {
		t.Errorf("member remove: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = httptest.NewRecorder()
	handler.Remove(rec, newRequest("DELETE", "", params, ownerID))
	if rec.Code != http.StatusNoContent {
		t.Errorf("owner remove: status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = httptest.NewRecorder()
	handler.Remove(rec, newRequest("DELETE", "", params, ownerID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second remove: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUpdate_BadMemberID(t *testing.T) {
	handler := NewHandler(&mockService{})

	rec := httptest.NewRecorder()
	handler.Update(rec, newRequest("PUT", `{"role":"admin"}`, map[string]string{"id": "1", "member_id": "abc"}, ownerID))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
