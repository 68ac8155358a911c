package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/multisite/internal/domain"
)

func TestFilterMatch(t *testing.T) {
	site := &domain.Site{ID: "1", UID: "u1", DisplayName: "Acme", Hostname: "acme.example.com", Active: true}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty matches all", filter: Filter{}, want: true},
		{name: "uid", filter: ByUID("u1"), want: true},
		{name: "other uid", filter: ByUID("u2"), want: false},
		{name: "active", filter: ByActive(true), want: true},
		{name: "inactive", filter: ByActive(false), want: false},
		{name: "display name ignores case", filter: Filter{DisplayName: "aCME"}, want: true},
		{name: "display name is anchored", filter: Filter{DisplayName: "Acm"}, want: false},
		{name: "hostname ignores case", filter: Filter{Hostname: "ACME.example.com"}, want: true},
		{name: "excluded id", filter: Filter{DisplayName: "acme", ExcludeID: "1"}, want: false},
		{name: "other excluded id", filter: Filter{DisplayName: "acme", ExcludeID: "2"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(site))
		})
	}

	assert.False(t, Filter{}.Match(nil))
}

func TestSortSites(t *testing.T) {
	sites := []*domain.Site{
		{UID: "c", DisplayName: "beta"},
		{UID: "b", DisplayName: "Alpha"},
		{UID: "a", DisplayName: "alpha"},
	}
	SortSites(sites)
	assert.Equal(t, []string{"a", "b", "c"}, []string{sites[0].UID, sites[1].UID, sites[2].UID})
}
