package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/mw"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/render"
)

// HomeTemplate is the template rendered for a site's home page.
const HomeTemplate = "home"

type homePage struct {
	Site   *domain.Site
	Locale string
}

// Home renders the home page of the site resolved by mw.ResolveSite.
func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := mw.SiteFrom(r.Context())
		if !ok {
			http.NotFound(w, r)
			return
		}

		locale := d.Pages.Negotiate(r.Header.Get("Accept-Language"))
		body, err := d.Pages.Render(HomeTemplate, locale, homePage{Site: entry.Site, Locale: locale})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, render.ErrTemplateNotFound) {
				status = http.StatusNotFound
			}
			d.Logger.Error("failed to render page",
				logger.Site(entry.Site.UID),
				logger.String("locale", locale),
				logger.Error(err))
			http.Error(w, http.StatusText(status), status)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Language", locale)
		w.Header().Add("Vary", "Accept-Language")
		if _, err := w.Write([]byte(body)); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}
