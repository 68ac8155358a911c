package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
	"github.com/MrSnakeDoc/multisite/internal/routing"
)

type componentStatus struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend,omitempty"`
	Node    string `json:"node,omitempty"`
	Impact  string `json:"impact,omitempty"`
	Error   string `json:"error,omitempty"`
}

type routingStatus struct {
	Public    int             `json:"public"`
	AdminOnly int             `json:"admin_only"`
	LastSync  string          `json:"last_sync"`
	Entries   []routing.Entry `json:"entries"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Multisite  bool                       `json:"multisite"`
	Components map[string]componentStatus `json:"components"`
	Routing    routingStatus              `json:"routing"`
}

// Infra reports backend health and the routing table.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		public, adminOnly := d.Registry.Counts()
		lastSync := "never"
		if t := d.Registry.LastSync(); !t.IsZero() {
			lastSync = t.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"store":   checkStore(r.Context(), d),
			"channel": checkChannel(d),
		}

		writeJSON(w, d.Logger, http.StatusOK, infraResponse{
			Status:     determineStatus(components, lastSync),
			Multisite:  d.Multisite,
			Components: components,
			Routing: routingStatus{
				Public:    public,
				AdminOnly: adminOnly,
				LastSync:  lastSync,
				Entries:   d.Registry.Entries(),
			},
		})
	}
}

func determineStatus(components map[string]componentStatus, lastSync string) string {
	if store, ok := components["store"]; ok && !store.OK {
		return "critical" // no persistence = no activation jobs
	}
	if lastSync == "never" {
		return "starting"
	}
	return "ok"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{
			Backend: d.StoreBackend,
			Impact:  "site changes unavailable",
			Error:   err.Error(),
		}
	}
	return componentStatus{OK: true, Backend: d.StoreBackend}
}

func checkChannel(d deps.Deps) componentStatus {
	if d.Channel == nil {
		return componentStatus{
			OK:      true,
			Backend: "none",
			Impact:  "transitions are not propagated to peers",
		}
	}
	return componentStatus{OK: true, Backend: d.ChannelBackend, Node: d.Channel.NodeID()}
}
