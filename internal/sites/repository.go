// Package sites is the site registry: persistence-backed lookups, creation
// with uniqueness validation, and the active flag writes used by activation
// jobs.
package sites

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/store"
)

// NewSite is the input of Create. Any active flag the caller wants is ignored:
// new sites always start inactive.
type NewSite struct {
	DisplayName string `json:"displayName" yaml:"displayName"`
	Hostname    string `json:"hostname" yaml:"hostname"`
}

// SiteMap partitions sites by their active flag.
type SiteMap struct {
	Active   []*domain.Site `json:"active"`
	Inactive []*domain.Site `json:"inactive"`
}

// Repository reads and writes site records.
type Repository struct {
	store     store.Store
	validator *Validator
	global    *domain.Site

	// createMu makes the uniqueness check and the insert one step.
	createMu sync.Mutex
}

// NewRepository builds a repository. global is returned for the global uid
// without any storage access.
func NewRepository(s store.Store, global *domain.Site) *Repository {
	return &Repository{
		store:     s,
		validator: NewValidator(s),
		global:    global,
	}
}

// Validator returns the uniqueness validator bound to the same store.
func (r *Repository) Validator() *Validator { return r.validator }

// Global returns a copy of the synthesized global site.
func (r *Repository) Global() *domain.Site { return r.global.Clone() }

// GetByUID returns the site or nil when it does not exist.
func (r *Repository) GetByUID(ctx context.Context, uid string) (*domain.Site, error) {
	if domain.ParseRef(uid).IsGlobal() {
		return r.Global(), nil
	}

	found, err := r.store.Find(ctx, store.ByUID(uid))
	if err != nil {
		return nil, fmt.Errorf("get site %s: %w", uid, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *Repository) GetAll(ctx context.Context) ([]*domain.Site, error) {
	return r.find(ctx, store.Filter{})
}

func (r *Repository) GetActive(ctx context.Context) ([]*domain.Site, error) {
	return r.find(ctx, store.ByActive(true))
}

func (r *Repository) GetInactive(ctx context.Context) ([]*domain.Site, error) {
	return r.find(ctx, store.ByActive(false))
}

// GetSiteMap runs the active and inactive queries concurrently.
func (r *Repository) GetSiteMap(ctx context.Context) (SiteMap, error) {
	var m SiteMap
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		active, err := r.GetActive(gctx)
		m.Active = active
		return err
	})
	g.Go(func() error {
		inactive, err := r.GetInactive(gctx)
		m.Inactive = inactive
		return err
	})

	if err := g.Wait(); err != nil {
		return SiteMap{}, err
	}
	return m, nil
}

// GetNameByUID returns the display name, or "" when the site does not exist.
func (r *Repository) GetNameByUID(ctx context.Context, uid string) (string, error) {
	site, err := r.GetByUID(ctx, uid)
	if err != nil || site == nil {
		return "", err
	}
	return site.DisplayName, nil
}

func (r *Repository) Exists(ctx context.Context, uid string) (bool, error) {
	if domain.ParseRef(uid).IsGlobal() {
		return true, nil
	}
	ok, err := r.store.Exists(ctx, store.ByUID(uid))
	if err != nil {
		return false, fmt.Errorf("check site %s: %w", uid, err)
	}
	return ok, nil
}

// Create validates uniqueness, then stores a new inactive site with a fresh uid.
// Nothing is written when validation fails. Creates on one repository run
// one at a time; across processes only the mongo hostname index enforces it.
func (r *Repository) Create(ctx context.Context, in NewSite) (*domain.Site, error) {
	name := strings.TrimSpace(in.DisplayName)
	host := domain.NormalizeHostname(in.Hostname)
	if name == "" || host == "" {
		return nil, fmt.Errorf("%w: display name and hostname are required", domain.ErrValidation)
	}
	if r.global != nil && strings.EqualFold(host, r.global.Hostname) {
		return nil, &domain.CollisionError{Hostname: 1}
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	c, err := r.validator.CountCollisions(ctx, name, host, "")
	if err != nil {
		return nil, fmt.Errorf("validate site: %w", err)
	}
	if c.Any() {
		return nil, &domain.CollisionError{DisplayName: c.DisplayName, Hostname: c.Hostname}
	}

	saved, err := r.store.Save(ctx, &domain.Site{
		UID:         uuid.NewString(),
		DisplayName: name,
		Hostname:    host,
		Active:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	return saved, nil
}

// SetActive persists the active flag. Missing sites yield domain.ErrNotFound.
// The global site cannot be toggled.
func (r *Repository) SetActive(ctx context.Context, uid string, active bool) (*domain.Site, error) {
	if domain.ParseRef(uid).IsGlobal() {
		return nil, fmt.Errorf("%w: the global site is always active", domain.ErrPrecondition)
	}

	site, err := r.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, domain.NotFound(uid)
	}

	site.Active = active
	saved, err := r.store.Save(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("save site %s: %w", uid, err)
	}
	return saved, nil
}

func (r *Repository) find(ctx context.Context, f store.Filter) ([]*domain.Site, error) {
	sites, err := r.store.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	return sites, nil
}
