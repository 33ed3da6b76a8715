package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/good-yellow-bee/taskboard/internal/api/respond"
)

// apiCSP forbids every resource load; the API only serves JSON.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// IsRequestSecure reports whether the request arrived over TLS, directly or
// through a proxy that set X-Forwarded-Proto.
func IsRequestSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// SecurityHeaders adds security-related HTTP headers to responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", apiCSP)
		h.Set("Cache-Control", "no-store")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if IsRequestSecure(r) {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// Recoverer recovers from panics, logs them with stack trace, and returns a 500 error.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Printf("PANIC recovered: %v\nRequest: [%s] %s %s\nStack:\n%s",
					err, GetRequestID(r.Context()), r.Method, r.URL.Path, debug.Stack())
				respond.Err(w, respond.ErrInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
