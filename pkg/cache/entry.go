package cache

import (
	"encoding/json"
	"time"
)

// Entry is the content of a cache file.
type Entry struct {
	// Endpoint is the endpoint the items were fetched from.
	Endpoint string `json:"endpoint"`

	// Username is the user the items were fetched as ("" for anonymous).
	Username string `json:"username,omitempty"`

	// CachedAt is when the file was written.
	CachedAt time.Time `json:"cached_at"`

	// Items are the raw API items, one JSON object each.
	Items []json.RawMessage `json:"items"`
}

// Age returns the time since the entry was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Len returns the number of cached items.
func (e *Entry) Len() int {
	return len(e.Items)
}
