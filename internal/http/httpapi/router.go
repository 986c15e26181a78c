package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bananalab/internal/http/handlers"
	"bananalab/internal/middleware"
)

// Options tunes the router's middleware.
type Options struct {
	AllowedOrigins []string
	RateLimit      int
	RatePer        time.Duration
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, opts.RatePer))
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/status", app.Status)
	r.Get("/v1/models", app.Models)
	r.Get("/v1/assets/archive", app.AssetsArchive)

	r.Route("/v1/templates", func(r chi.Router) {
		r.Post("/", app.TemplateCreate)
		r.Get("/pending", app.TemplatesPending)
	})

	r.Route("/v1/batch", func(r chi.Router) {
		r.Post("/", app.BatchTrigger)
		r.Get("/{job_id}", app.BatchStatus)
	})

	return r
}
