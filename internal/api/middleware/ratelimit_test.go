package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("a") {
		t.Error("4th request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other key should have its own bucket")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		if !rl.Allow("a") {
			t.Fatal("disabled limiter should allow everything")
		}
	}
	if rl.size() != 0 {
		t.Errorf("size = %d, want 0", rl.size())
	}
}

func TestRateLimiter_CleanupEvictsIdle(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(10)
	rl.now = func() time.Time { return now }

	rl.Allow("idle")
	now = now.Add(idleTTL + time.Second)
	rl.Allow("fresh")

	rl.cleanup()

	if rl.size() != 1 {
		t.Errorf("size = %d, want 1", rl.size())
	}
}

func TestRateLimitByIP(t *testing.T) {
	rl := NewRateLimiter(1)
	handler := RateLimitByIP(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/users/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

func TestRateLimitByUser_SeparatesUsers(t *testing.T) {
	rl := NewRateLimiter(1)
	handler := RateLimitByUser(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, id := range []int64{1, 2} {
		req := httptest.NewRequest("GET", "/projects", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req = req.WithContext(WithUser(req.Context(), id, "u"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("user %d: status = %d, want 200", id, rec.Code)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"forwarded chain ignored", "203.0.113.9, 10.0.0.1", "", "10.0.0.1:80", "10.0.0.1"},
		{"real ip ignored", "", "198.51.100.2", "10.0.0.1:80", "10.0.0.1"},
		{"no port", "", "", "198.51.100.7", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitByIP_IgnoresSpoofedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(3)
	handler := RateLimitByIP(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	limited := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("POST", "/users/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 7 {
		t.Errorf("limited = %d, want 7", limited)
	}
}
