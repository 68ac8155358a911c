package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/MrSnakeDoc/multisite/internal/commands"
	"github.com/MrSnakeDoc/multisite/internal/config"
	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/httpserver"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
	"github.com/MrSnakeDoc/multisite/internal/jobs"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/render"
	"github.com/MrSnakeDoc/multisite/internal/routing"
	"github.com/MrSnakeDoc/multisite/internal/scheduler"
	"github.com/MrSnakeDoc/multisite/internal/sites"
	"github.com/MrSnakeDoc/multisite/internal/sources/seed"
	"github.com/MrSnakeDoc/multisite/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	mongoClient *mongod.Client
	channel     commands.Channel
	repo        *sites.Repository
	registry    *routing.Registry
	runner      *jobs.Runner
	syncer      *scheduler.RegistrySyncer
}

// New loads the configuration and builds the app. Backend failures are fatal.
func New() *App {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	a, err := Build(context.Background(), cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to initialize: %v", err)
		os.Exit(1)
	}
	return a
}

// Build connects the backends and wires every component.
func Build(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: loggerClient}

	// Initialize Redis early - fail fast if unavailable
	if cfg.UsesRedis() {
		client, err := connectRedis(ctx, cfg, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redisClient = client
	}

	st, mongoClient, err := openStore(ctx, cfg, a.redisClient, loggerClient)
	if err != nil {
		a.closeClients()
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	a.mongoClient = mongoClient

	ch, err := openChannel(cfg, a.redisClient, loggerClient)
	if err != nil {
		a.closeClients()
		return nil, err
	}
	a.channel = ch

	pages, err := render.Default(cfg.TemplateLocale)
	if err != nil {
		a.closeClients()
		return nil, err
	}

	a.repo = sites.NewRepository(st, domain.GlobalSite(cfg.SiteName, cfg.GlobalHostname))
	a.registry = routing.NewRegistry()
	a.runner = jobs.NewRunner(a.repo, a.registry, ch, jobs.Options{
		Multisite:      cfg.Multisite,
		GlobalHostname: cfg.GlobalHostname,
		CommandTimeout: cfg.CommandTimeout,
	}, loggerClient)

	// Create manual sync trigger channel
	syncTrigger := make(chan struct{}, 1)
	a.syncer = scheduler.NewRegistrySyncer(a.runner, loggerClient, cfg.SyncInterval, syncTrigger)

	channelBackend := cfg.Channel
	if ch == nil {
		channelBackend = ""
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		Multisite:      cfg.Multisite,
		Sites:          a.repo,
		Runner:         a.runner,
		Registry:       a.registry,
		Store:          st,
		StoreBackend:   cfg.Store,
		Channel:        ch,
		ChannelBackend: channelBackend,
		Pages:          pages,
		SyncTrigger:    syncTrigger,
		JobWait:        cfg.CommandTimeout,
		AdminBurst:     cfg.AdminRateBurst,
		AdminPerMinute: cfg.AdminRatePerMinute,
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a, nil
}

// Run serves until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.cfg.ListenPort)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.ListenPort, err)
	}
	return a.Serve(ctx, ln)
}

// Serve starts every component, serves HTTP on ln until ctx is done, then
// stops everything in reverse order.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.logger.Infof("🚀 Starting %s on %s", version.String(), ln.Addr())
	a.logger.Info("site mode",
		logger.Bool("multisite", a.cfg.Multisite),
		logger.String("global_hostname", a.cfg.GlobalHostname),
		logger.String("store", a.cfg.Store),
		logger.String("channel", a.cfg.Channel),
		logger.String("node", a.cfg.NodeID))

	defer a.closeClients()

	if a.cfg.SeedFile != "" {
		if _, err := seed.NewImporter(a.repo, a.logger).ImportFile(ctx, a.cfg.SeedFile); err != nil {
			_ = ln.Close()
			return fmt.Errorf("import seed file: %w", err)
		}
	}

	// Bootstrap the routing registry, then keep it reconciled.
	if err := a.syncer.Start(ctx); err != nil {
		_ = ln.Close()
		if errors.Is(err, domain.ErrConfiguration) {
			a.logger.Error("❌ invalid site configuration", logger.Error(err))
		}
		return err
	}
	a.logger.Info("registry syncer started", logger.Duration("interval", a.cfg.SyncInterval))

	if a.channel != nil {
		a.runner.RegisterCommandHandlers()
		if err := a.channel.Start(ctx); err != nil {
			a.syncer.Stop()
			_ = ln.Close()
			return fmt.Errorf("start command channel: %w", err)
		}
		a.logger.Info("command channel started", logger.String("node", a.channel.NodeID()))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Serve(ln); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.syncer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if a.channel != nil {
		if err := a.channel.Close(); err != nil {
			a.logger.Warn("failed to close command channel", logger.Error(err))
		}
	}
	a.runner.Wait()

	if runErr == nil {
		a.logger.Info("✅ multisite stopped cleanly")
	}
	return runErr
}

func (a *App) closeClients() {
	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.logger.Warnf("failed to disconnect mongodb: %v", err)
		} else {
			a.logger.Info("✅ MongoDB disconnected cleanly")
		}
		a.mongoClient = nil
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
		a.redisClient = nil
	}
}
