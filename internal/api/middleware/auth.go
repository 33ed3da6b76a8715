package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/taskboard/internal/api/auth"
	"github.com/good-yellow-bee/taskboard/internal/api/respond"
)

// Context keys for storing user information.
type contextKey string

const (
	userIDKey      contextKey = "user_id"
	usernameKey    contextKey = "username"
	requestIDKey   contextKey = "request_id"
	requestUserKey contextKey = "request_user"
)

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// withClaims attaches the token's user to ctx and reports it to the
// enclosing RequestLogger.
func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	if ru, ok := ctx.Value(requestUserKey).(*requestUser); ok {
		ru.name = claims.Username
	}
	return WithUser(ctx, claims.UserID, claims.Username)
}

// JWTAuth returns middleware that requires a valid access token.
func JWTAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respond.Err(w, respond.ErrUnauthenticated)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				log.Printf("JWT auth failed for %s: %v", r.RemoteAddr, err)
				respond.Err(w, respond.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalJWTAuth attaches the caller when a valid token is present and
// lets anonymous requests through. An invalid token is still rejected.
func OptionalJWTAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			JWTAuth(jwtService)(next).ServeHTTP(w, r)
		})
	}
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, userID int64, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

// GetUserID returns the user ID from context, or 0 when anonymous.
func GetUserID(ctx context.Context) int64 {
	if v, ok := ctx.Value(userIDKey).(int64); ok {
		return v
	}
	return 0
}

// GetUsername returns the username from context.
func GetUsername(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}
