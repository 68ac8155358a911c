package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/routing"
	"github.com/MrSnakeDoc/multisite/internal/sites"
	"github.com/MrSnakeDoc/multisite/internal/store"
	"github.com/MrSnakeDoc/multisite/internal/store/memory"
)

func TestJobNaming(t *testing.T) {
	job := New(Activate, "u1")
	assert.Equal(t, "ACTIVATE_SITE_u1", job.Name)
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.RunAsInitiator)

	replay := New(Deactivate, "u1").WithID("job-7")
	assert.Equal(t, "DEACTIVATE_SITE_u1", replay.Name)
	assert.Equal(t, "job-7", replay.ID)

	cmd := replay.Command()
	assert.Equal(t, "deactivate_site", string(cmd.Type))
	assert.Equal(t, "job-7", cmd.JobID)
	assert.NoError(t, cmd.Validate())
}

func TestActivateAcme(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, memory.New(), nil)

	acme := createSite(t, n.repo, "Acme", "acme.example.com")
	require.False(t, acme.Active)
	require.NoError(t, n.runner.InitSites(ctx))

	entry, ok := n.registry.Lookup("acme.example.com")
	require.True(t, ok)
	assert.Equal(t, routing.AdminOnly, entry.Mode)

	done, results := capture()
	jobID := n.runner.Activate(ctx, acme.UID, done)
	assert.NotEmpty(t, jobID)

	got := await(t, results)
	require.NoError(t, got.err)
	assert.True(t, got.site.Active)

	stored, err := n.repo.GetByUID(ctx, acme.UID)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	entry, ok = n.registry.Lookup("ACME.example.com:8080")
	require.True(t, ok)
	assert.Equal(t, routing.Public, entry.Mode)
	assert.Equal(t, acme.UID, entry.Site.UID)
}

func TestActivateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, memory.New(), nil)
	acme := createSite(t, n.repo, "Acme", "acme.example.com")

	for i := 0; i < 3; i++ {
		_, err := n.runner.Run(ctx, New(Activate, acme.UID))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, n.registry.Count())
	public, adminOnly := n.registry.Counts()
	assert.Equal(t, 1, public)
	assert.Equal(t, 0, adminOnly)

	active, err := n.repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRunUnknownSite(t *testing.T) {
	n := newNode(t, memory.New(), nil)

	done, results := capture()
	n.runner.Activate(context.Background(), "missing", done)

	got := await(t, results)
	assert.ErrorIs(t, got.err, domain.ErrNotFound)
	assert.Nil(t, got.site)
	assert.Equal(t, 0, n.registry.Count())
}

func TestDeactivateRestrictsToAdmin(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, memory.New(), nil)
	acme := createSite(t, n.repo, "Acme", "acme.example.com")

	_, err := n.runner.Run(ctx, New(Activate, acme.UID))
	require.NoError(t, err)
	_, err = n.runner.Run(ctx, New(Deactivate, acme.UID))
	require.NoError(t, err)

	entry, ok := n.registry.Lookup("acme.example.com")
	require.True(t, ok)
	assert.Equal(t, routing.AdminOnly, entry.Mode)
}

func TestStartTrafficRequiresActiveSite(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, memory.New(), nil)
	acme := createSite(t, n.repo, "Acme", "acme.example.com")

	_, err := n.runner.StartAcceptingSiteTraffic(ctx, acme.UID)
	require.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Contains(t, err.Error(), "Site not active")
	assert.Equal(t, 0, n.registry.Count(), "registry must stay untouched")

	_, err = n.runner.StartAcceptingSiteTraffic(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTrafficToggleDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	n := newNode(t, s, nil)
	acme := createSite(t, n.repo, "Acme", "acme.example.com")

	_, err := n.runner.StopAcceptingSiteTraffic(ctx, acme.UID)
	require.NoError(t, err)
	entry, ok := n.registry.Lookup("acme.example.com")
	require.True(t, ok)
	assert.Equal(t, routing.AdminOnly, entry.Mode)

	_, err = n.repo.SetActive(ctx, acme.UID, true)
	require.NoError(t, err)

	_, err = n.runner.StopAcceptingSiteTraffic(ctx, acme.UID)
	require.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Contains(t, err.Error(), "Site still active")

	site, err := n.runner.StartAcceptingSiteTraffic(ctx, acme.UID)
	require.NoError(t, err)
	assert.True(t, site.Active)

	entry, _ = n.registry.Lookup("acme.example.com")
	assert.Equal(t, routing.Public, entry.Mode)

	stored, err := s.Find(ctx, store.ByUID(acme.UID))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Active)
}

func TestTrafficToggleWaitsForSiteJob(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, memory.New(), nil)
	acme := createSite(t, n.repo, "Acme", "acme.example.com")
	_, err := n.repo.SetActive(ctx, acme.UID, true)
	require.NoError(t, err)

	// Hold the site as a running job would.
	unlock := n.runner.locks.lock(acme.UID)

	started := make(chan error, 1)
	go func() {
		_, err := n.runner.StartAcceptingSiteTraffic(ctx, acme.UID)
		started <- err
	}()

	select {
	case <-started:
		t.Fatal("traffic toggle ran while a job held the site")
	case <-time.After(30 * time.Millisecond):
	}
	_, ok := n.registry.Site(acme.UID)
	assert.False(t, ok)

	unlock()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("traffic toggle never finished")
	}
	entry, ok := n.registry.Site(acme.UID)
	require.True(t, ok)
	assert.Equal(t, routing.Public, entry.Mode)
}

func TestStoppedRunnerRejectsWork(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, memory.New(), nil)
	acme := createSite(t, n.repo, "Acme", "acme.example.com")

	n.runner.Wait()

	done, results := capture()
	n.runner.Activate(ctx, acme.UID, done)
	got := await(t, results)
	assert.ErrorIs(t, got.err, ErrStopped)

	n.runner.onActivateSiteCommand(ctx, New(Activate, acme.UID).Command())

	stored, err := n.repo.GetByUID(ctx, acme.UID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	_, ok := n.registry.Site(acme.UID)
	assert.False(t, ok)
}

func TestInitSitesRequiresGlobalHostname(t *testing.T) {
	repo := sites.NewRepository(failingStore{}, domain.GlobalSite("Main", ""))
	r := NewRunner(repo, routing.NewRegistry(), nil, Options{Multisite: true}, logger.NewNop())

	err := r.InitSites(context.Background())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestInitSitesSingleSiteMode(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := sites.NewRepository(s, domain.GlobalSite("Main", globalHost))
	createSite(t, repo, "Acme", "acme.example.com")

	reg := routing.NewRegistry()
	r := NewRunner(repo, reg, nil, Options{GlobalHostname: globalHost}, logger.NewNop())
	require.NoError(t, r.InitSites(ctx))

	assert.Equal(t, 1, reg.Count())
	entry, ok := reg.Lookup(globalHost)
	require.True(t, ok)
	assert.Equal(t, routing.Public, entry.Mode)
	assert.True(t, entry.Site.Ref().IsGlobal())
}

func TestInitSitesReconciles(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, memory.New(), nil)
	acme := createSite(t, n.repo, "Acme", "acme.example.com")
	beta := createSite(t, n.repo, "Beta", "beta.example.com")

	n.registry.ActivateSite(&domain.Site{UID: "gone", Hostname: "gone.example.com", Active: true})
	_, err := n.repo.SetActive(ctx, beta.UID, true)
	require.NoError(t, err)

	require.NoError(t, n.runner.InitSites(ctx))

	_, ok := n.registry.Lookup("gone.example.com")
	assert.False(t, ok)

	entry, _ := n.registry.Site(acme.UID)
	assert.Equal(t, routing.AdminOnly, entry.Mode)
	entry, _ = n.registry.Site(beta.UID)
	assert.Equal(t, routing.Public, entry.Mode)
	entry, _ = n.registry.Lookup(globalHost)
	assert.Equal(t, routing.Public, entry.Mode)
	assert.False(t, n.registry.LastSync().IsZero())
}

func TestInitSitesPropagatesStoreErrors(t *testing.T) {
	repo := sites.NewRepository(failingStore{}, domain.GlobalSite("Main", globalHost))
	r := NewRunner(repo, routing.NewRegistry(), nil, Options{Multisite: true, GlobalHostname: globalHost}, logger.NewNop())

	err := r.InitSites(context.Background())
	assert.ErrorIs(t, err, errBackend)
}

var errBackend = errors.New("backend down")

type failingStore struct{}

func (failingStore) Find(context.Context, store.Filter) ([]*domain.Site, error) {
	return nil, errBackend
}

func (failingStore) Count(context.Context, store.Filter) (int, error) {
	return 0, errBackend
}

func (failingStore) Exists(context.Context, store.Filter) (bool, error) {
	return false, errBackend
}

func (failingStore) Save(context.Context, *domain.Site) (*domain.Site, error) {
	return nil, errBackend
}

func (failingStore) Ping(context.Context) error {
	return errBackend
}
