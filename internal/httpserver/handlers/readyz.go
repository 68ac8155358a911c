package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
)

const probeTimeout = 2 * time.Second

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Readyz reports ready once the routing registry has been loaded and the
// store answers a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Registry.LastSync().IsZero() {
			writeJSON(w, d.Logger, http.StatusServiceUnavailable, readyzResponse{Reason: "routing registry not loaded"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			writeJSON(w, d.Logger, http.StatusServiceUnavailable, readyzResponse{Reason: "store unavailable"})
			return
		}

		writeJSON(w, d.Logger, http.StatusOK, readyzResponse{Ready: true})
	}
}
