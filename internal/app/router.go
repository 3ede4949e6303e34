package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facturio/facturio/internal/auth"
	"github.com/facturio/facturio/internal/billing"
	"github.com/facturio/facturio/internal/platform/httpx"
	"github.com/facturio/facturio/jobs"
)

// RouterParams aggregates everything the HTTP router needs.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Auth    auth.Middleware
	Billing *billing.Handler
	Jobs    *jobs.Handler
}

// NewRouter assembles the application router: the shared middleware chain, a
// health probe, and the API surface behind API-key authentication.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(p.Auth.RequireCompany)
		p.Billing.MountRoutes(r)
		if p.Jobs != nil {
			r.Route("/jobs", p.Jobs.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown route")
	})

	return r
}
