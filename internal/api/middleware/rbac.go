package middleware

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/taskboard/internal/api/respond"
)

// RequireSelf allows access only when the {id} URL parameter is the caller.
// A malformed id falls through so the handler can answer 400.
func RequireSelf(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if id != GetUserID(r.Context()) {
				respond.Err(w, &respond.Error{
					Code:    respond.CodeForbidden,
					Message: message,
					Status:  http.StatusForbidden,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
