package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/notedrop/service/internal/logging"
	appMiddleware "github.com/notedrop/service/internal/middleware"
	"github.com/notedrop/service/internal/response"
	"github.com/notedrop/service/internal/uploads"
)

var (
	corsMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Accept", "Content-Type", "X-Request-ID", appMiddleware.BackendHeader}
)

// newRouter mounts the middleware chain, health and docs routes, and the
// upload API. backendIDs are the ids a request may select.
func newRouter(h *uploads.Handler, backendIDs []string, log logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: corsMethods,
		AllowedHeaders: corsHeaders,
		MaxAge:         300,
	}))
	r.Use(appMiddleware.Preflight(corsMethods, corsHeaders))

	// Health check
	health := func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	}
	r.Get("/", health)
	r.Get("/health", health)

	// Swagger UI, served at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Backend(backendIDs...))
		h.Mount(r)
	})
	return r
}
