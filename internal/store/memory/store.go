// Package memory is an in-process site store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps site records in a map keyed by storage ID.
// Safe for concurrent access.
type Store struct {
	mu    sync.RWMutex
	sites map[string]*domain.Site
}

// New returns an empty store.
func New() *Store {
	return &Store{sites: make(map[string]*domain.Site)}
}

func (s *Store) Find(_ context.Context, f store.Filter) ([]*domain.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Site, 0, len(s.sites))
	for _, site := range s.sites {
		if f.Match(site) {
			out = append(out, site.Clone())
		}
	}
	store.SortSites(out)
	return out, nil
}

func (s *Store) Count(_ context.Context, f store.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, site := range s.sites {
		if f.Match(site) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Exists(ctx context.Context, f store.Filter) (bool, error) {
	n, err := s.Count(ctx, f)
	return n > 0, err
}

func (s *Store) Save(_ context.Context, site *domain.Site) (*domain.Site, error) {
	c := site.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.sites[c.ID] = c
	s.mu.Unlock()

	return c.Clone(), nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sites)
}
