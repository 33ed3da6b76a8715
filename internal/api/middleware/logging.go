// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(status int) {
	if !rw.wroteHeader {
		rw.status = status
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// requestUser is filled in by the auth middleware further down the chain,
// whose context RequestLogger never sees.
type requestUser struct {
	name string
}

// GetRequestID returns the request id assigned by RequestLogger.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// RequestLogger returns a middleware that logs HTTP requests. Failed
// requests are always logged; successful ones only when verbose.
func RequestLogger(verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.New().String()[:8]

			w.Header().Set("X-Request-ID", requestID)
			caller := &requestUser{}
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			r = r.WithContext(context.WithValue(ctx, requestUserKey, caller))

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if verbose || wrapped.status >= 400 {
				user := "-"
				if caller.name != "" {
					user = caller.name
				}
				log.Printf("[%s] %s %s %d %d %v user=%s",
					requestID,
					r.Method,
					r.URL.Path,
					wrapped.status,
					wrapped.size,
					time.Since(start),
					user,
				)
			}
		})
	}
}
