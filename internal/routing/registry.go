// Package routing holds the in-memory hostname → site table used to
// dispatch incoming requests.
package routing

import (
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/multisite/internal/domain"
)

// Mode tells which routes a registered host serves.
type Mode int

const (
	// AdminOnly hosts serve admin routes only.
	AdminOnly Mode = iota
	// Public hosts serve admin and public routes.
	Public
)

func (m Mode) String() string {
	if m == Public {
		return "public"
	}
	return "admin-only"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Entry is a routing table row: a snapshot of the site and its dispatch mode.
type Entry struct {
	Site *domain.Site `json:"site"`
	Mode Mode         `json:"mode"`
}

// Registry maps hostnames to entries. Writes are last-write-wins per hostname.
type Registry struct {
	mu       sync.RWMutex
	byHost   map[string]Entry  // hostname -> entry
	byUID    map[string]string // uid -> hostname
	lastSync time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byHost: make(map[string]Entry),
		byUID:  make(map[string]string),
	}
}

// LoadSite registers the site in the mode matching its active flag.
func (r *Registry) LoadSite(site *domain.Site) {
	mode := AdminOnly
	if site.Active {
		mode = Public
	}
	r.put(site, mode)
}

// ActivateSite registers the site for public dispatch.
func (r *Registry) ActivateSite(site *domain.Site) { r.put(site, Public) }

// DeactivateSite keeps the site registered for admin routes only.
func (r *Registry) DeactivateSite(site *domain.Site) { r.put(site, AdminOnly) }

func (r *Registry) put(site *domain.Site, mode Mode) {
	snap := site.Clone()
	host := domain.NormalizeHostname(snap.Hostname)
	snap.Hostname = host

	r.mu.Lock()
	defer r.mu.Unlock()

	// A site lives under a single hostname.
	if prev, ok := r.byUID[snap.UID]; ok && prev != host {
		r.dropHost(prev, snap.UID)
	}
	// Last write wins: the previous owner of host loses its entry.
	if cur, ok := r.byHost[host]; ok && cur.Site.UID != snap.UID {
		delete(r.byUID, cur.Site.UID)
	}
	r.byHost[host] = Entry{Site: snap, Mode: mode}
	r.byUID[snap.UID] = host
}

// Unregister removes the site with the given uid.
func (r *Registry) Unregister(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if host, ok := r.byUID[uid]; ok {
		r.dropHost(host, uid)
		delete(r.byUID, uid)
	}
}

// dropHost removes host only while uid still owns it. Caller holds mu.
func (r *Registry) dropHost(host, uid string) {
	if cur, ok := r.byHost[host]; ok && cur.Site.UID == uid {
		delete(r.byHost, host)
	}
}

// Retain drops every site whose uid is not in keep and records a sync time.
func (r *Registry) Retain(keep map[string]bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []string
	for uid, host := range r.byUID {
		if keep[uid] {
			continue
		}
		r.dropHost(host, uid)
		delete(r.byUID, uid)
		dropped = append(dropped, uid)
	}
	r.lastSync = time.Now()
	sort.Strings(dropped)
	return dropped
}

// Lookup resolves a Host header value. The port is ignored and the
// comparison is case-insensitive.
func (r *Registry) Lookup(host string) (Entry, bool) {
	h := host
	if hh, _, err := net.SplitHostPort(host); err == nil {
		h = hh
	}
	h = domain.NormalizeHostname(strings.Trim(h, "[]"))

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byHost[h]
	if !ok {
		return Entry{}, false
	}
	e.Site = e.Site.Clone()
	return e, true
}

// Site returns the entry registered for uid.
func (r *Registry) Site(uid string) (Entry, bool) {
	r.mu.RLock()
	host, ok := r.byUID[uid]
	r.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return r.Lookup(host)
}

// Entries returns a snapshot sorted by hostname.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.byHost))
	for _, e := range r.byHost {
		e.Site = e.Site.Clone()
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Site.Hostname < out[j].Site.Hostname })
	return out
}

// Counts returns the number of public and admin-only hosts.
func (r *Registry) Counts() (public, adminOnly int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.byHost {
		if e.Mode == Public {
			public++
		} else {
			adminOnly++
		}
	}
	return public, adminOnly
}

// Count returns the number of registered hosts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byHost)
}

// LastSync returns when Retain last ran.
func (r *Registry) LastSync() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastSync
}
