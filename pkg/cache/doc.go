// Package cache keeps the items of GitHub list endpoints in flat JSON files
// so a later run can work from the saved data instead of calling the API.
//
// One file holds every item returned by one endpoint for one user:
//
//	<cache dir>/octocat_orgs-acme-repos.json
//	<cache dir>/_anon_users-octocat-repos.json
//
// # Basic Usage
//
//	manager := cache.NewManager(".gitdata-cache")
//
//	key := cache.Key{Username: "octocat", Endpoint: "/orgs/acme/repos"}
//
//	// Store all items of the endpoint, stamping each with the org name
//	err := manager.Set(key, items, map[string]any{"org": "acme"})
//
//	// Read them back
//	entry, err := manager.Get(key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Nothing cached yet - call the API
//	}
//
// Files are replaced atomically. There is no expiry: the caller decides
// between fresh data and cached data, using Timestamp to show the age of a
// cache file.
//
// # Metrics
//
//   - github_cache_hits_total - Cache files read
//   - github_cache_misses_total - Cache lookups without a file
//   - github_cache_bytes_written_total - Bytes written to cache files
//   - github_cache_errors_total{operation} - Cache operation errors
package cache
