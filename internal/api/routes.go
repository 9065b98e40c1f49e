package api

import (
	"time"

	"github.com/nipun22325/secret-sharing/config"
	"github.com/nipun22325/secret-sharing/internal/secrets"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRouter(svc *secrets.Service, cfg *config.Config) *chi.Mux {
	h := NewHandler(svc, cfg)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(CORS(CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Health
	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(JSONOnly)

		// Apply rate limiting if enabled
		if cfg.RateLimit.Enabled {
			apiLimiter := NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
			retrieveLimiter := NewRateLimiter(cfg.RateLimit.RetrievePerMin, time.Minute)

			r.Use(apiLimiter.Middleware)

			r.Route("/secrets", func(r chi.Router) {
				r.Post("/", h.CreateSecret)
				r.With(retrieveLimiter.Middleware).Post("/{id}", h.RetrieveSecret)
				r.Get("/{id}/info", h.GetInfo)
			})
		} else {
			r.Route("/secrets", func(r chi.Router) {
				r.Post("/", h.CreateSecret)
				r.Post("/{id}", h.RetrieveSecret)
				r.Get("/{id}/info", h.GetInfo)
			})
		}

		r.Get("/stats", h.GetStats)
		r.Delete("/admin/cleanup", h.AdminSweep)
	})

	// Frontend
	r.Get("/", h.Index)
	r.Get("/view/{id}", h.ViewPage)

	return r
}
