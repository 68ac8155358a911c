package domain

import "strings"

// GlobalUID is the reserved identifier of the synthesized global site.
const GlobalUID = "global"

// Site is a tenant: one hostname-scoped content domain served by the process.
//
// The global site is never persisted. It is built from process configuration
// by GlobalSite and is always active.
type Site struct {
	// ID is the storage identifier (_id). Assigned by the store on first save.
	ID string `json:"_id,omitempty"`

	// UID is the tenant identifier. Unique and immutable after creation.
	UID string `json:"uid"`

	// DisplayName is unique across sites, ignoring case.
	DisplayName string `json:"displayName"`

	// Hostname is unique across sites, ignoring case. Stored lower-cased.
	Hostname string `json:"hostname"`

	// Active marks the site's public routes as reachable.
	Active bool `json:"active"`
}

// GlobalSite returns the default site used when multi-tenancy is disabled
// or when no tenant is specified.
func GlobalSite(name, hostname string) *Site {
	return &Site{
		UID:         GlobalUID,
		DisplayName: name,
		Hostname:    NormalizeHostname(hostname),
		Active:      true,
	}
}

// Ref returns the tagged reference for this site.
func (s *Site) Ref() SiteRef {
	if s == nil {
		return Global()
	}
	return ParseRef(s.UID)
}

// Clone returns a copy that shares no state with s.
func (s *Site) Clone() *Site {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// NormalizeHostname lower-cases the hostname and strips surrounding spaces
// and a trailing dot.
func NormalizeHostname(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.TrimSuffix(h, ".")
}
