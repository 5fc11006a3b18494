package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"planos/internal/config"
	"planos/internal/goals"
	"planos/internal/importer"
	"planos/internal/metrics"
	"planos/internal/session"
)

const maxRequestBytes = maxImportUploadBytes + 1<<20

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Sessions    *session.Manager
	Entry       *EntryController
	Goals       *goals.Service
	Importer    *importer.CSVImporter
	RateLimiter *RateLimiter
	Metrics     metrics.Recorder
	// Gatherer backs /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, deps Dependencies, logger *slog.Logger) (http.Handler, error) {
	views, err := newRenderer(logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(newSlogMiddleware(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	entry := NewEntryHandler(deps.Entry, deps.Sessions, views, logger)
	pages := NewPageHandler(deps.Goals, deps.Importer, deps.Metrics, views, logger)
	api := NewAPIHandler(deps.Goals, deps.Entry.OAuthAvailable(), logger)

	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.Middleware())
		r.Use(middleware.RequestSize(maxRequestBytes))
		r.Use(newCSRFMiddleware(logger))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Get("/", entry.Index)
		r.Post("/logout", entry.Logout)

		r.Group(func(r chi.Router) {
			r.Use(newRequireUserMiddleware(false))
			r.Get("/dashboard", pages.Dashboard)
			r.Route("/goals", func(r chi.Router) {
				r.Get("/", pages.Goals)
				r.Post("/", pages.CreateGoal)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", pages.Goal)
					r.Post("/", pages.UpdateGoal)
					r.Post("/delete", pages.DeleteGoal)
					r.Post("/progress", pages.LogProgress)
					r.Post("/milestones", pages.AddMilestone)
					r.Post("/milestones/{milestoneID}/delete", pages.DeleteMilestone)
				})
			})
			r.Route("/reviews", func(r chi.Router) {
				r.Get("/", pages.Reviews)
				r.Post("/", pages.SaveReview)
				r.Get("/export", pages.Export)
				r.Post("/import", pages.Import)
			})
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
				ExposedHeaders:   []string{"Link"},
				AllowCredentials: true,
				MaxAge:           300,
			}))

			r.Get("/session", api.Session)

			r.Group(func(r chi.Router) {
				r.Use(newRequireUserMiddleware(true))
				r.Get("/overview", api.Overview)
				r.Route("/goals", func(r chi.Router) {
					r.Get("/", api.ListGoals)
					r.Post("/", api.CreateGoal)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", api.GetGoal)
						r.Put("/", api.UpdateGoal)
						r.Delete("/", api.DeleteGoal)
						r.Get("/progress", api.ListProgress)
						r.Post("/progress", api.LogProgress)
						r.Get("/milestones", api.ListMilestones)
						r.Post("/milestones", api.AddMilestone)
						r.Delete("/milestones/{milestoneID}", api.DeleteMilestone)
					})
				})
			})
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r, nil
}
