package deps

import (
	"time"

	"github.com/MrSnakeDoc/multisite/internal/commands"
	"github.com/MrSnakeDoc/multisite/internal/jobs"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/render"
	"github.com/MrSnakeDoc/multisite/internal/routing"
	"github.com/MrSnakeDoc/multisite/internal/sites"
	"github.com/MrSnakeDoc/multisite/internal/store"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedCIDRS []string // IPs allowed to reach the admin API and probes
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Multisite      bool              // false => every host resolves to the global site
	Sites          *sites.Repository // site queries and creation
	Runner         *jobs.Runner      // activation jobs and traffic toggles
	Registry       *routing.Registry // hostname => site dispatch table
	Store          store.Store       // persistence backend, pinged by probes
	StoreBackend   string            // "memory" | "redis" | "mongo"
	Channel        commands.Channel  // command channel, nil when propagation is off
	ChannelBackend string            // "local" | "redis"
	Pages          *render.Templates // public page templates
	SyncTrigger    chan struct{}     // Channel to trigger a manual registry sync
	JobWait        time.Duration     // max time ?wait=true blocks on a job
	AdminBurst     int               // admin write burst per IP, 0 = unlimited
	AdminPerMinute int               // admin write refill per IP
}
