package server

import (
	"net/http"

	"github.com/cloo-solutions/mentorkb/internal/api"
	"github.com/cloo-solutions/mentorkb/internal/api/handlers"
	"github.com/cloo-solutions/mentorkb/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	// APIKey is the pre-shared bearer key guarding /v1
	APIKey        string
	SearchHandler *handlers.SearchHandler
	StatsHandler  *handlers.StatsHandler
	ItemsHandler  *handlers.ItemsHandler
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

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.StaticKeyAuth(cfg.APIKey))

		r.Post("/search", cfg.SearchHandler.Search)
		r.Get("/stats", cfg.StatsHandler.Stats)
		r.Get("/items", cfg.ItemsHandler.List)
	})

	return r
}
