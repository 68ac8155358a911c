package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/store"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestSaveAndFind(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	saved, err := s.Save(ctx, &domain.Site{UID: "u1", DisplayName: "Acme", Hostname: "acme.example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	assert.True(t, mr.Exists(SiteKey(saved.ID)))
	members, err := mr.Members(AllSitesKey())
	require.NoError(t, err)
	assert.Equal(t, []string{saved.ID}, members)

	got, err := s.Find(ctx, store.Filter{DisplayName: "ACME"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UID)
	assert.Equal(t, saved.ID, got[0].ID)
}

func TestSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	saved, err := s.Save(ctx, &domain.Site{UID: "u1", DisplayName: "Acme"})
	require.NoError(t, err)
	saved.Active = true
	_, err = s.Save(ctx, saved)
	require.NoError(t, err)

	n, err := s.Count(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := s.Exists(ctx, store.ByActive(true))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFindSkipsDanglingIndexEntries(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, err := s.Save(ctx, &domain.Site{UID: "u1", DisplayName: "Acme"})
	require.NoError(t, err)
	_, err = mr.SAdd(AllSitesKey(), "ghost")
	require.NoError(t, err)

	got, err := s.Find(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFindEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.Find(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTransportErrorPropagates(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.client.Close())

	_, err := s.Find(context.Background(), store.Filter{})
	assert.Error(t, err)
}

func TestExtractSiteID(t *testing.T) {
	id, err := ExtractSiteID(SiteKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = ExtractSiteID(KeyPrefixSite)
	assert.Error(t, err)
}
