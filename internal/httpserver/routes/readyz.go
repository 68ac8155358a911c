package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/mw"
)

func init() { Register(registerProbes) }

func registerProbes(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	probes := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	probes.Get("/readyz", handlers.Readyz(d))
	probes.Get("/infra", handlers.Infra(d))
}
