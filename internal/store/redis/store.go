// Package redis stores site records as JSON documents in Redis.
//
// Each site lives under multisite:site:<id>; the set multisite:sites:all
// indexes every stored ID. Filtering happens client-side with store.Filter.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store handles Redis operations for sites
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store. The caller owns the client lifecycle.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Save stores a site and indexes its ID
func (s *Store) Save(ctx context.Context, site *domain.Site) (*domain.Site, error) {
	c := site.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal site: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SiteKey(c.ID), data, 0)
	pipe.SAdd(ctx, AllSitesKey(), c.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to save site: %w", err)
	}

	return c, nil
}

// Find loads every site and keeps the ones matching f
func (s *Store) Find(ctx context.Context, f store.Filter) ([]*domain.Site, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Site, 0, len(all))
	for _, site := range all {
		if f.Match(site) {
			out = append(out, site)
		}
	}
	store.SortSites(out)
	return out, nil
}

func (s *Store) Count(ctx context.Context, f store.Filter) (int, error) {
	sites, err := s.Find(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(sites), nil
}

func (s *Store) Exists(ctx context.Context, f store.Filter) (bool, error) {
	n, err := s.Count(ctx, f)
	return n > 0, err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// loadAll fetches every indexed site with a single MGET
func (s *Store) loadAll(ctx context.Context) ([]*domain.Site, error) {
	ids, err := s.client.SMembers(ctx, AllSitesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get site IDs: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Site{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = SiteKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sites: %w", err)
	}

	sites := make([]*domain.Site, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Indexed but missing document; skip it
			continue
		}
		var site domain.Site
		if err := json.Unmarshal([]byte(raw), &site); err != nil {
			return nil, fmt.Errorf("failed to unmarshal site %s: %w", ids[i], err)
		}
		sites = append(sites, &site)
	}

	return sites, nil
}
