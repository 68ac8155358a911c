package mw

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/routing"
)

type siteKey struct{}

// ResolveSite maps r.Host to a publicly dispatched site through the routing
// registry and stores the entry in the request context. Unknown hosts and
// admin-only sites get a 404.
// With multisite disabled every host resolves to the global site.
func ResolveSite(registry *routing.Registry, multisite bool, global *domain.Site, log logger.Logger) func(http.Handler) http.Handler {
	if !multisite {
		log.Debug("ResolveSite: multisite disabled, every host serves the global site")
		entry := routing.Entry{Site: global.Clone(), Mode: routing.Public}
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(WithSite(r.Context(), entry)))
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry, ok := registry.Lookup(r.Host)
			if !ok {
				log.Debugf("ResolveSite: Host %s UNKNOWN", r.Host)
				http.NotFound(w, r)
				return
			}
			if entry.Mode != routing.Public {
				log.Debugf("ResolveSite: Host %s ADMIN ONLY (site %s)", r.Host, entry.Site.UID)
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSite(r.Context(), entry)))
		})
	}
}

// WithSite returns a context carrying entry.
func WithSite(ctx context.Context, entry routing.Entry) context.Context {
	return context.WithValue(ctx, siteKey{}, entry)
}

// SiteFrom returns the entry set by ResolveSite.
func SiteFrom(ctx context.Context) (routing.Entry, bool) {
	entry, ok := ctx.Value(siteKey{}).(routing.Entry)
	return entry, ok
}
