package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/multisite/internal/logger"
)

// Bootstrapper rebuilds the routing registry from persisted sites.
type Bootstrapper interface {
	InitSites(ctx context.Context) error
}

// RegistrySyncer periodically reconciles the routing registry with storage.
// Peers can miss broadcast commands; the next pass repairs them.
type RegistrySyncer struct {
	sites         Bootstrapper
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	done          chan struct{}
}

// NewRegistrySyncer creates a syncer. manualTrigger may be nil.
func NewRegistrySyncer(
	sites Bootstrapper,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *RegistrySyncer {
	return &RegistrySyncer{
		sites:         sites,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		done:          make(chan struct{}),
	}
}

// Start runs a first sync synchronously and then syncs on every tick or
// manual trigger. A failing first sync is returned and nothing is started.
func (rs *RegistrySyncer) Start(ctx context.Context) error {
	if err := rs.Sync(ctx); err != nil {
		close(rs.done)
		return fmt.Errorf("initial registry sync failed: %w", err)
	}

	if rs.interval <= 0 {
		rs.logger.Warn("periodic registry sync disabled", logger.Duration("interval", rs.interval))
	}

	go func() {
		defer close(rs.done)

		var tick <-chan time.Time
		if rs.interval > 0 {
			ticker := time.NewTicker(rs.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				if err := rs.Sync(ctx); err != nil {
					rs.logger.Error("failed to sync routing registry", logger.Error(err))
				}
			case <-rs.manualTrigger:
				rs.logger.Info("manual registry sync triggered")
				if err := rs.Sync(ctx); err != nil {
					rs.logger.Error("failed to sync routing registry", logger.Error(err))
				}
			case <-rs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the syncer and waits for an in-flight pass. Safe to call twice.
func (rs *RegistrySyncer) Stop() {
	rs.stopOnce.Do(func() { close(rs.stopCh) })
	<-rs.done
}

// Sync runs one reconciliation pass.
func (rs *RegistrySyncer) Sync(ctx context.Context) error {
	start := time.Now()
	if err := rs.sites.InitSites(ctx); err != nil {
		return err
	}
	rs.logger.Debug("routing registry synced", logger.Duration("elapsed", time.Since(start)))
	return nil
}
