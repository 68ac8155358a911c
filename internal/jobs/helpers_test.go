package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/multisite/internal/commands"
	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/routing"
	"github.com/MrSnakeDoc/multisite/internal/sites"
	"github.com/MrSnakeDoc/multisite/internal/store"
)

const (
	globalHost = "main.example.com"
	waitFor    = 2 * time.Second
	tick       = 10 * time.Millisecond
)

type node struct {
	runner   *Runner
	repo     *sites.Repository
	registry *routing.Registry
}

func newNode(t *testing.T, s store.Store, ch commands.Channel) *node {
	t.Helper()
	repo := sites.NewRepository(s, domain.GlobalSite("Main", globalHost))
	reg := routing.NewRegistry()
	r := NewRunner(repo, reg, ch, Options{
		Multisite:      true,
		GlobalHostname: globalHost,
		CommandTimeout: 200 * time.Millisecond,
	}, logger.NewNop())
	t.Cleanup(r.Wait)
	return &node{runner: r, repo: repo, registry: reg}
}

func joinHub(t *testing.T, hub *commands.Hub, id string) *commands.LocalChannel {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	lc := hub.Join(id, logger.NewNop())
	require.NoError(t, lc.Start(ctx))
	t.Cleanup(func() { _ = lc.Close() })
	return lc
}

func createSite(t *testing.T, repo *sites.Repository, name, host string) *domain.Site {
	t.Helper()
	site, err := repo.Create(context.Background(), sites.NewSite{DisplayName: name, Hostname: host})
	require.NoError(t, err)
	return site
}

type outcome struct {
	site *domain.Site
	err  error
}

func capture() (Callback, <-chan outcome) {
	ch := make(chan outcome, 1)
	return func(site *domain.Site, err error) { ch <- outcome{site, err} }, ch
}

func await(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(waitFor):
		t.Fatal("job callback never fired")
		return outcome{}
	}
}
