package app

import (
	"net/http"
	"time"

	"taskManager/internal/auth"
	"taskManager/internal/handlers"
	"taskManager/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	Handler        *handlers.TaskHandler
	Directory      auth.Directory
	RequestTimeout time.Duration
	RateLimitRPM   int
	CORSOrigins    []string
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	if cfg.RateLimitRPM > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPM))
	}

	h := cfg.Handler
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Directory))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)   // GET /api/tasks?page=&pageSize=&orderBy=
			r.Post("/", h.CreateTask) // POST /api/tasks

			r.Get("/search", h.SearchTasks)               // GET /api/tasks/search?title=&status=&priority=
			r.Get("/due-today", h.GetTasksDueToday)       // GET /api/tasks/due-today
			r.Get("/status/{status}", h.GetTasksByStatus) // GET /api/tasks/status/{status}

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTaskByID)
				r.Put("/", h.UpdateTask)
				r.Delete("/", h.DeleteTask)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/tasks/user-counts", h.GetUserTaskCounts)
		})
	})

	return r
}
