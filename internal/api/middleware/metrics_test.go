package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRouteMetrics_Labels(t *testing.T) {
	m := NewRouteMetrics()

	var got string
	r := chi.NewRouter()
	r.Use(m.Middleware)
	capture := func(w http.ResponseWriter, req *http.Request) {
		got = m.label(req)
	}
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", capture)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", capture)
			r.Get("/members/{member_id}", capture)
		})
	})
	r.NotFound(capture)

	if err := m.Load(r); err != nil {
		t.Fatalf("load routes: %v", err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"/projects/", "/projects"},
		{"/projects/7", "/projects/{id}"},
		{"/projects/7/members/3", "/projects/{id}/members/{member_id}"},
		{"/wp-admin/setup.php", unmatchedRoute},
	}
	for _, tt := range tests {
		got = ""
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))
		if got != tt.want {
			t.Errorf("label(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRouteMetrics_UnloadedRoutesAreUnmatched(t *testing.T) {
	m := NewRouteMetrics()

	var got string
	r := chi.NewRouter()
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = m.label(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/users/1", nil))
	if got != unmatchedRoute {
		t.Errorf("label = %q, want %q", got, unmatchedRoute)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/":               "/",
		"/projects/":      "/projects",
		"/projects/{id}/": "/projects/{id}",
		"/tasks/*":        "/tasks",
		"/health/live":    "/health/live",
	}
	for in, want := range tests {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
