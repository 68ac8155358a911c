package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/mw"
)

func init() { Register(registerSites) }

func registerSites(r chi.Router, d deps.Deps) {
	r.Route("/api", func(api chi.Router) {
		api.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))

		// Writes share one per-IP budget.
		writes := api.With(mw.RateLimit(mw.RateLimitConfig{
			Burst:      d.AdminBurst,
			PerMinute:  d.AdminPerMinute,
			TrustProxy: d.TrustProxy,
		}))

		api.Get("/sites", handlers.ListSites(d))
		writes.Post("/sites", handlers.CreateSite(d))
		api.Get("/sites/{uid}", handlers.GetSite(d))
		writes.Post("/sites/{uid}/activate", handlers.ActivateSite(d))
		writes.Post("/sites/{uid}/deactivate", handlers.DeactivateSite(d))
		writes.Post("/sites/{uid}/traffic/start", handlers.StartTraffic(d))
		writes.Post("/sites/{uid}/traffic/stop", handlers.StopTraffic(d))
		writes.Post("/sync", handlers.Sync(d))
	})
}
