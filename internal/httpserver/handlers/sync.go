package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
	"github.com/MrSnakeDoc/multisite/internal/logger"
)

type syncResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Sync triggers a manual routing registry reconciliation.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.SyncTrigger <- struct{}{}:
			d.Logger.Info("manual registry sync triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, d.Logger, http.StatusAccepted, syncResponse{
				Triggered: true,
				Message:   "sync triggered",
			})
		default:
			d.Logger.Warn("registry sync already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, d.Logger, http.StatusTooManyRequests, syncResponse{
				Message: "sync already pending, please wait",
			})
		}
	}
}
