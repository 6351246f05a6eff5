package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Sternrassler/gitdata/pkg/logging"
	"github.com/Sternrassler/gitdata/pkg/output"
)

var (
	// ErrCacheMiss indicates no cache file exists for the key
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache file is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultDir is the cache directory used when none is configured.
const DefaultDir = "gh_cache"

// Manager reads and writes cache files in one directory.
type Manager struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a cache manager storing files in dir. The directory
// is created on the first write.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = DefaultDir
	}
	return &Manager{
		dir:    dir,
		logger: logging.NewLogger("cache"),
		now:    time.Now,
	}
}

// Dir returns the cache directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the cache file path for key.
func (m *Manager) Path(key Key) string {
	return filepath.Join(m.dir, key.Filename())
}

// Exists reports whether a cache file exists for key.
func (m *Manager) Exists(key Key) bool {
	info, err := os.Stat(m.Path(key))
	return err == nil && info.Mode().IsRegular()
}

// Timestamp returns when the cache file for key was written.
func (m *Manager) Timestamp(key Key) (time.Time, error) {
	entry, err := m.Get(key)
	if err != nil {
		return time.Time{}, err
	}
	return entry.CachedAt, nil
}

// Get reads the cache file for key.
// Returns ErrCacheMiss if there is no file.
func (m *Manager) Get(key Key) (*Entry, error) {
	path := m.Path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			CacheMisses.Inc()
			m.logger.Debug().Str("file", path).Msg("Cache miss")
			return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, path, err)
	}

	CacheHits.Inc()
	m.logger.Debug().
		Str("file", path).
		Int("items", entry.Len()).
		Time("cached_at", entry.CachedAt).
		Msg("Cache hit")

	return &entry, nil
}

// Set writes items to the cache file for key, replacing any previous file.
// Every object item gets the constants merged in as top-level fields.
func (m *Manager) Set(key Key, items []json.RawMessage, constants map[string]any) error {
	merged := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		out, err := MergeConstants(item, constants)
		if err != nil {
			CacheErrors.WithLabelValues("set").Inc()
			return fmt.Errorf("merge constants into item %d: %w", i, err)
		}
		merged = append(merged, out)
	}

	entry := Entry{
		Endpoint: key.Endpoint,
		Username: key.Username,
		CachedAt: m.now().UTC(),
		Items:    merged,
	}

	data, err := json.MarshalIndent(entry, "", "    ")
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	path := m.Path(key)
	if err := output.AtomicWrite(path, data); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return err
	}

	CacheBytesWritten.Add(float64(len(data)))
	m.logger.Debug().
		Str("file", path).
		Int("items", len(merged)).
		Int("bytes", len(data)).
		Msg("Cache updated")

	return nil
}

// Delete removes the cache file for key.
func (m *Manager) Delete(key Key) error {
	if err := os.Remove(m.Path(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// MergeConstants sets each constant as a top-level field of item. Items
// that are not JSON objects are returned unchanged. Constants are applied
// in name order.
func MergeConstants(item json.RawMessage, constants map[string]any) (json.RawMessage, error) {
	if len(constants) == 0 || !gjson.ParseBytes(item).IsObject() {
		return item, nil
	}

	names := make([]string, 0, len(constants))
	for name := range constants {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []byte(item)
	for _, name := range names {
		var err error
		out, err = sjson.SetBytes(out, escapePath(name), constants[name])
		if err != nil {
			return nil, fmt.Errorf("set %q: %w", name, err)
		}
	}
	return out, nil
}

// escapePath escapes the path syntax characters of a single key.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
