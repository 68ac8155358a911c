// Package store defines the persistence contract for site records.
// Backends live in the subpackages (memory, redis, mongo).
package store

import (
	"context"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/multisite/internal/domain"
)

// Store persists site records.
type Store interface {
	// Find returns matching sites ordered by display name, then uid.
	Find(ctx context.Context, f Filter) ([]*domain.Site, error)
	Count(ctx context.Context, f Filter) (int, error)
	Exists(ctx context.Context, f Filter) (bool, error)
	// Save inserts a site with an empty ID (assigning one) or replaces the
	// record with the same ID. It returns the stored copy.
	Save(ctx context.Context, site *domain.Site) (*domain.Site, error)
	Ping(ctx context.Context) error
}

// Filter selects sites. Zero-valued fields do not constrain.
// DisplayName and Hostname match exactly, ignoring case.
type Filter struct {
	UID         string
	Active      *bool
	DisplayName string
	Hostname    string
	// ExcludeID removes the record with this storage ID from the result.
	ExcludeID string
}

// ByUID selects the site with the given uid.
func ByUID(uid string) Filter { return Filter{UID: uid} }

// ByActive selects active or inactive sites.
func ByActive(active bool) Filter { return Filter{Active: &active} }

// Match reports whether site satisfies f.
func (f Filter) Match(site *domain.Site) bool {
	if site == nil {
		return false
	}
	if f.UID != "" && site.UID != f.UID {
		return false
	}
	if f.Active != nil && site.Active != *f.Active {
		return false
	}
	if f.DisplayName != "" && !strings.EqualFold(site.DisplayName, f.DisplayName) {
		return false
	}
	if f.Hostname != "" && !strings.EqualFold(site.Hostname, f.Hostname) {
		return false
	}
	if f.ExcludeID != "" && site.ID == f.ExcludeID {
		return false
	}
	return true
}

// SortSites orders sites the way Find must return them.
func SortSites(sites []*domain.Site) {
	sort.Slice(sites, func(i, j int) bool {
		a, b := strings.ToLower(sites[i].DisplayName), strings.ToLower(sites[j].DisplayName)
		if a != b {
			return a < b
		}
		return sites[i].UID < sites[j].UID
	})
}
