package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/helmsley-labs/docqa/internal/api"
	"github.com/helmsley-labs/docqa/internal/api/handlers"
	"github.com/helmsley-labs/docqa/internal/api/middleware"
	"github.com/helmsley-labs/docqa/internal/ratelimit"
)

type RouterConfig struct {
	ChatHandler *handlers.ChatHandler
	DocsHandler *handlers.DocsHandler
	Limiter     *ratelimit.Limiter
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

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.Limiter))
			r.Post("/chat", cfg.ChatHandler.Chat)
		})

		r.Route("/docs", func(r chi.Router) {
			r.Get("/", cfg.DocsHandler.List)
			r.Get("/{slug}", cfg.DocsHandler.Get)
		})
	})

	return r
}
