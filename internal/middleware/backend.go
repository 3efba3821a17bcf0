package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/notedrop/service/internal/response"
	"github.com/notedrop/service/internal/store"
)

// BackendHeader lets a caller pick the storage backend for one request.
const BackendHeader = "X-Storage-Backend"

// Backend returns middleware that routes a request to the backend named by
// the X-Storage-Backend header or the "backend" query parameter. Requests
// naming no backend use the configured default; unknown ids are rejected.
func Backend(known ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(BackendHeader))
			if id == "" {
				id = strings.TrimSpace(r.URL.Query().Get("backend"))
			}
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			id = strings.ToLower(id)
			if !slices.Contains(known, id) {
				response.BadRequest(w, "unknown storage backend")
				return
			}
			next.ServeHTTP(w, r.WithContext(store.WithBackend(r.Context(), id)))
		})
	}
}
