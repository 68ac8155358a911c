package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/MrSnakeDoc/multisite/internal/commands"
	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/routing"
	"github.com/MrSnakeDoc/multisite/internal/sites"
)

// ErrStopped is reported for jobs started after Wait was called.
var ErrStopped = errors.New("job runner stopped")

// DefaultCommandTimeout bounds how long an initiator collects peer responses.
const DefaultCommandTimeout = 5 * time.Second

// Options configures a Runner.
type Options struct {
	Multisite      bool          // serve tenants; false serves the global site only
	GlobalHostname string        // hostname of the global site
	CommandTimeout time.Duration // how long to collect peer responses
	Tracer         trace.Tracer  // nil uses the global otel provider
}

// Callback receives the outcome of an asynchronous job.
type Callback func(site *domain.Site, err error)

// Runner executes site transitions and keeps the routing registry in step
// with persisted state.
type Runner struct {
	repo     *sites.Repository
	registry *routing.Registry
	channel  commands.Channel
	opts     Options
	logger   logger.Logger
	locks    *siteLocks
	tracer   trace.Tracer

	mu      sync.Mutex // guards stopped and wg.Add
	stopped bool
	wg      sync.WaitGroup
}

// NewRunner builds a runner. channel may be nil, in which case transitions
// are never propagated.
func NewRunner(
	repo *sites.Repository,
	registry *routing.Registry,
	channel commands.Channel,
	opts Options,
	log logger.Logger,
) *Runner {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = defaultTracer()
	}
	return &Runner{
		repo:     repo,
		registry: registry,
		channel:  channel,
		opts:     opts,
		logger:   log,
		locks:    newSiteLocks(),
		tracer:   tracer,
	}
}

// Activate starts an activation job for uid and returns its id at once.
// done, if not nil, is called when the local run completes.
func (r *Runner) Activate(ctx context.Context, uid string, done Callback) string {
	return r.start(ctx, New(Activate, uid).AsInitiator(), done)
}

// Deactivate starts a deactivation job for uid and returns its id at once.
func (r *Runner) Deactivate(ctx context.Context, uid string, done Callback) string {
	return r.start(ctx, New(Deactivate, uid).AsInitiator(), done)
}

func (r *Runner) start(ctx context.Context, job *Job, done Callback) string {
	// The job outlives the request that started it.
	ctx = context.WithoutCancel(ctx)

	if !r.track() {
		r.logger.Warn("job rejected, runner stopped", logger.Job(job.ID), logger.Site(job.Site))
		if done != nil {
			done(nil, ErrStopped)
		}
		return job.ID
	}
	go func() {
		defer r.wg.Done()

		site, err := r.Run(ctx, job)
		if err == nil && job.RunAsInitiator {
			r.propagate(ctx, job)
		}
		if done != nil {
			done(site, err)
		}
	}()

	return job.ID
}

// Run performs the transition synchronously: persist first, then update the
// registry. Jobs for the same site never overlap on this node.
func (r *Runner) Run(ctx context.Context, job *Job) (*domain.Site, error) {
	ctx, span := r.startSpan(ctx, spanRun, job)
	site, err := r.run(ctx, job)
	endSpan(span, err)
	return site, err
}

func (r *Runner) run(ctx context.Context, job *Job) (*domain.Site, error) {
	unlock := r.locks.lock(job.Site)
	defer unlock()

	log := r.logger.With(
		logger.Job(job.ID),
		logger.Site(job.Site),
		logger.String("job", job.Name),
		logger.Bool("initiator", job.RunAsInitiator))

	active := job.Transition == Activate
	site, err := r.repo.SetActive(ctx, job.Site, active)
	if err != nil {
		log.Warn("site transition failed", logger.Error(err))
		return nil, err
	}

	if !r.opts.Multisite {
		log.Debug("multisite disabled, routing registry left untouched")
		return site, nil
	}

	if active {
		r.registry.ActivateSite(site)
	} else {
		r.registry.DeactivateSite(site)
	}

	log.Info("site transition applied", logger.String("hostname", site.Hostname))
	return site, nil
}

// StartAcceptingSiteTraffic pushes an already active site into public
// dispatch. It does not write to storage.
func (r *Runner) StartAcceptingSiteTraffic(ctx context.Context, uid string) (*domain.Site, error) {
	unlock := r.locks.lock(uid)
	defer unlock()

	site, err := r.loadForTraffic(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !site.Active {
		return nil, domain.Precondition("Site not active", uid)
	}

	r.registry.ActivateSite(site)
	r.logger.Info("site accepting traffic", logger.Site(site.UID), logger.String("hostname", site.Hostname))
	return site, nil
}

// StopAcceptingSiteTraffic restricts an inactive site to admin routes.
// It does not write to storage.
func (r *Runner) StopAcceptingSiteTraffic(ctx context.Context, uid string) (*domain.Site, error) {
	unlock := r.locks.lock(uid)
	defer unlock()

	site, err := r.loadForTraffic(ctx, uid)
	if err != nil {
		return nil, err
	}
	if site.Active {
		return nil, domain.Precondition("Site still active", uid)
	}

	r.registry.DeactivateSite(site)
	r.logger.Info("site stopped accepting traffic", logger.Site(site.UID), logger.String("hostname", site.Hostname))
	return site, nil
}

func (r *Runner) loadForTraffic(ctx context.Context, uid string) (*domain.Site, error) {
	site, err := r.repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, domain.NotFound(uid)
	}
	return site, nil
}

// InitSites registers the global site and, in multisite mode, every persisted
// site by its active flag. Registry entries for sites that are no longer
// persisted are dropped, so the call doubles as a reconciliation pass.
func (r *Runner) InitSites(ctx context.Context) error {
	if r.opts.Multisite && r.opts.GlobalHostname == "" {
		return fmt.Errorf("%w: multisite is enabled but no global hostname is configured", domain.ErrConfiguration)
	}

	keep := make(map[string]bool)
	if global := r.repo.Global(); global != nil && global.Hostname != "" {
		r.registry.LoadSite(global)
		keep[global.UID] = true
	}

	loaded := 0
	if r.opts.Multisite {
		all, err := r.repo.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("load sites: %w", err)
		}
		for _, site := range all {
			r.registry.LoadSite(site)
			keep[site.UID] = true
		}
		loaded = len(all)
	}

	dropped := r.registry.Retain(keep)
	public, adminOnly := r.registry.Counts()
	r.logger.Info("routing registry loaded",
		logger.Int("sites", loaded),
		logger.Int("public", public),
		logger.Int("admin_only", adminOnly),
		logger.Strings("dropped", dropped))
	return nil
}

// Wait blocks until every in-flight job and response collector is done.
// Afterwards new jobs fail with ErrStopped and inbound commands are ignored.
func (r *Runner) Wait() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.wg.Wait()
}

// track registers one unit of background work unless Wait has been called.
func (r *Runner) track() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.wg.Add(1)
	return true
}
