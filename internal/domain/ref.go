package domain

// SiteRef identifies either the global site or one tenant.
// The zero value is the global reference.
type SiteRef struct {
	uid string
}

// Global returns the reference to the global site.
func Global() SiteRef { return SiteRef{} }

// Tenant returns a reference to the tenant with the given uid.
// An empty or reserved uid yields the global reference.
func Tenant(uid string) SiteRef { return ParseRef(uid) }

// ParseRef maps "" and GlobalUID to the global reference and anything else
// to a tenant reference.
func ParseRef(uid string) SiteRef {
	if uid == "" || uid == GlobalUID {
		return SiteRef{}
	}
	return SiteRef{uid: uid}
}

// IsGlobal reports whether r designates the global site.
func (r SiteRef) IsGlobal() bool { return r.uid == "" }

// UID returns the tenant uid, or GlobalUID for the global reference.
func (r SiteRef) UID() string {
	if r.IsGlobal() {
		return GlobalUID
	}
	return r.uid
}

// Equal reports whether both references designate the same site.
func (r SiteRef) Equal(o SiteRef) bool { return r.uid == o.uid }

func (r SiteRef) String() string { return r.UID() }
