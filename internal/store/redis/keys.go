package redis

import "fmt"

const (
	// KeyPrefixSite is the prefix for site document keys
	KeyPrefixSite = "multisite:site:"
	// KeyAllSites is the key for the set of all site storage IDs
	KeyAllSites = "multisite:sites:all"
)

// SiteKey returns the Redis key for a site by storage ID
func SiteKey(id string) string {
	return KeyPrefixSite + id
}

// AllSitesKey returns the key for the set of all site IDs
func AllSitesKey() string {
	return KeyAllSites
}

// ExtractSiteID extracts the storage ID from a Redis key
func ExtractSiteID(key string) (string, error) {
	if len(key) <= len(KeyPrefixSite) {
		return "", fmt.Errorf("invalid site key: %s", key)
	}
	return key[len(KeyPrefixSite):], nil
}
