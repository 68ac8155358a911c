package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/mw"
)

func init() { Register(registerPublic) }

func registerPublic(r chi.Router, d deps.Deps) {
	r.With(mw.ResolveSite(d.Registry, d.Multisite, d.Sites.Global(), d.Logger)).Get("/", handlers.Home(d))
}
