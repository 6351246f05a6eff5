package cache

import (
	"net/url"
	"strings"
)

// AnonymousUser names cache files written without credentials.
const AnonymousUser = "_anon"

// Key identifies the cached items of one endpoint for one user.
type Key struct {
	// Username is the authenticated GitHub user ("" for anonymous calls).
	Username string

	// Endpoint is the API path ("/orgs/acme/repos") or a full URL.
	Endpoint string
}

// String returns the user and endpoint in the form user:endpoint.
func (k Key) String() string {
	return k.user() + ":" + k.Endpoint
}

// Filename returns the cache file name for the key.
//
// Example:
//
//	Key{Username: "octocat", Endpoint: "/orgs/acme/repos?type=all"}.Filename()
//	// octocat_orgs-acme-repos-type-all.json
func (k Key) Filename() string {
	return k.user() + "_" + sanitize(endpointPath(k.Endpoint)) + ".json"
}

func (k Key) user() string {
	if k.Username == "" {
		return AnonymousUser
	}
	return sanitize(k.Username)
}

// endpointPath drops scheme and host from a full URL.
func endpointPath(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() {
		return endpoint
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// sanitize replaces everything but letters, digits, dot and underscore by
// a dash and collapses runs of dashes.
func sanitize(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
