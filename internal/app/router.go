package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pixelsmith/pixelsmith/internal/account"
	"github.com/pixelsmith/pixelsmith/internal/auth"
	"github.com/pixelsmith/pixelsmith/internal/generation"
	"github.com/pixelsmith/pixelsmith/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthHandler       *auth.Handler
	AccountHandler    *account.Handler
	GenerationHandler *generation.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Pixelsmith defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/user", params.AccountHandler.MountRoutes)
	r.Route("/generations", params.GenerationHandler.MountRoutes)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
