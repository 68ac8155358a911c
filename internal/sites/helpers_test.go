package sites

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/store"
	"github.com/MrSnakeDoc/multisite/internal/store/memory"
)

// spyStore counts calls and can be told to fail.
type spyStore struct {
	*memory.Store
	reads  atomic.Int64
	writes atomic.Int64
	err    error
}

func newSpyStore() *spyStore {
	return &spyStore{Store: memory.New()}
}

func (s *spyStore) Find(ctx context.Context, f store.Filter) ([]*domain.Site, error) {
	s.reads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.Store.Find(ctx, f)
}

func (s *spyStore) Count(ctx context.Context, f store.Filter) (int, error) {
	s.reads.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return s.Store.Count(ctx, f)
}

func (s *spyStore) Exists(ctx context.Context, f store.Filter) (bool, error) {
	s.reads.Add(1)
	if s.err != nil {
		return false, s.err
	}
	return s.Store.Exists(ctx, f)
}

func (s *spyStore) Save(ctx context.Context, site *domain.Site) (*domain.Site, error) {
	s.writes.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.Store.Save(ctx, site)
}

// slowStore answers Count late, widening the gap between check and write.
type slowStore struct {
	*memory.Store
	delay time.Duration
}

func (s *slowStore) Count(ctx context.Context, f store.Filter) (int, error) {
	n, err := s.Store.Count(ctx, f)
	time.Sleep(s.delay)
	return n, err
}

var errBackend = errors.New("backend down")

func testGlobal() *domain.Site {
	return domain.GlobalSite("Main", "www.example.com")
}
