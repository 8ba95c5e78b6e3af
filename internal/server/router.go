package server

import (
	"net/http"

	"github.com/cloo-solutions/examvault/internal/api"
	"github.com/cloo-solutions/examvault/internal/api/handlers"
	"github.com/cloo-solutions/examvault/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	// AdminToken guards /v1. When empty the /v1 routes are not mounted.
	AdminToken       string
	IngestionHandler *handlers.IngestionHandler
	DocumentHandler  *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.AdminToken == "" {
		return r
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminToken))

		r.Route("/ingestion", func(r chi.Router) {
			r.Post("/batch", cfg.IngestionHandler.StartBatch)
			r.Post("/sync", cfg.IngestionHandler.StartSync)
			r.Get("/jobs/{id}", cfg.IngestionHandler.GetJob)
			r.Post("/reap", cfg.IngestionHandler.Reap)
		})

		r.Get("/documents", cfg.DocumentHandler.List)
	})

	return r
}
