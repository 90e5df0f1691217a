package api

import (
	"context"
	"net/http"
)

type projectCtxKey struct{}

// RequireProject extracts the tenant from the X-Project-ID header and
// stores it on the request context. Requests without one are rejected
// before they reach a handler.
func RequireProject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID := r.Header.Get("X-Project-ID")
		if projectID == "" {
			respondError(w, http.StatusBadRequest, "X-Project-ID header is required")
			return
		}
		ctx := context.WithValue(r.Context(), projectCtxKey{}, projectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func projectID(r *http.Request) string {
	id, _ := r.Context().Value(projectCtxKey{}).(string)
	return id
}
