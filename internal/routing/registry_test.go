package routing

import (
	"sync"
	"testing"

	"github.com/MrSnakeDoc/multisite/internal/domain"
)

func site(uid, host string, active bool) *domain.Site {
	return &domain.Site{UID: uid, DisplayName: uid, Hostname: host, Active: active}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.Count() != 0 {
		t.Errorf("NewRegistry() should start empty, got %v", r.Count())
	}
}

func TestLoadSiteUsesActiveFlag(t *testing.T) {
	r := NewRegistry()
	r.LoadSite(site("a", "a.example.com", true))
	r.LoadSite(site("b", "b.example.com", false))

	if e, ok := r.Lookup("a.example.com"); !ok || e.Mode != Public {
		t.Errorf("Lookup(a) = %v, %v; want public", e.Mode, ok)
	}
	if e, ok := r.Lookup("b.example.com"); !ok || e.Mode != AdminOnly {
		t.Errorf("Lookup(b) = %v, %v; want admin-only", e.Mode, ok)
	}

	public, admin := r.Counts()
	if public != 1 || admin != 1 {
		t.Errorf("Counts() = %d, %d; want 1, 1", public, admin)
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := site("a", "acme.example.com", true)

	r.ActivateSite(s)
	r.ActivateSite(s)

	if r.Count() != 1 {
		t.Errorf("Count() = %d after repeated activation, want 1", r.Count())
	}
}

func TestDeactivateKeepsAdminRoute(t *testing.T) {
	r := NewRegistry()
	s := site("a", "acme.example.com", true)
	r.ActivateSite(s)
	r.DeactivateSite(s)

	e, ok := r.Lookup("acme.example.com")
	if !ok {
		t.Fatal("deactivated site should stay registered")
	}
	if e.Mode != AdminOnly {
		t.Errorf("mode = %v, want admin-only", e.Mode)
	}
}

func TestLookupNormalizesHost(t *testing.T) {
	r := NewRegistry()
	r.ActivateSite(site("a", "acme.example.com", true))

	for _, host := range []string{"ACME.example.com", "acme.example.com:8080", "acme.example.com."} {
		if _, ok := r.Lookup(host); !ok {
			t.Errorf("Lookup(%q) missed", host)
		}
	}
	if _, ok := r.Lookup("other.example.com"); ok {
		t.Error("Lookup(other) should miss")
	}
}

func TestHostnameChangeMovesEntry(t *testing.T) {
	r := NewRegistry()
	r.ActivateSite(site("a", "old.example.com", true))
	r.ActivateSite(site("a", "new.example.com", true))

	if _, ok := r.Lookup("old.example.com"); ok {
		t.Error("old hostname should be gone")
	}
	if _, ok := r.Lookup("new.example.com"); !ok {
		t.Error("new hostname should resolve")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestHostTakeoverReleasesPreviousOwner(t *testing.T) {
	r := NewRegistry()
	r.LoadSite(site("a", "h.example.com", true))
	r.LoadSite(site("b", "h.example.com", true))

	if _, ok := r.Site("a"); ok {
		t.Error("a should no longer own a host")
	}

	dropped := r.Retain(map[string]bool{"b": true})
	if len(dropped) != 0 {
		t.Errorf("Retain() dropped %v, want none", dropped)
	}
	e, ok := r.Lookup("h.example.com")
	if !ok || e.Site.UID != "b" {
		t.Fatalf("Lookup() = %+v, %v; want b", e, ok)
	}

	r.Unregister("a")
	if _, ok := r.Lookup("h.example.com"); !ok {
		t.Error("unregistering the previous owner must keep b")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRetainDropsUnknown(t *testing.T) {
	r := NewRegistry()
	r.LoadSite(site("a", "a.example.com", true))
	r.LoadSite(site("b", "b.example.com", true))

	dropped := r.Retain(map[string]bool{"a": true})
	if len(dropped) != 1 || dropped[0] != "b" {
		t.Errorf("Retain() dropped %v, want [b]", dropped)
	}
	if _, ok := r.Site("b"); ok {
		t.Error("b should be unregistered")
	}
	if r.LastSync().IsZero() {
		t.Error("LastSync() should be set")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.LoadSite(site("a", "a.example.com", true))
	r.Unregister("a")
	r.Unregister("missing")

	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestLookupReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	s := site("a", "a.example.com", true)
	r.ActivateSite(s)
	s.DisplayName = "mutated"

	e, _ := r.Lookup("a.example.com")
	e.Site.DisplayName = "also mutated"

	again, _ := r.Lookup("a.example.com")
	if again.Site.DisplayName != "a" {
		t.Errorf("registry entry leaked mutation: %q", again.Site.DisplayName)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	s := site("a", "a.example.com", false)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.ActivateSite(s)
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Lookup("a.example.com")
			_ = r.Entries()
		}()
	}
	wg.Wait()

	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}
