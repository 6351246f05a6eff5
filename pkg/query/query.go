// Package query retrieves GitHub data as flat records, from the API or from
// the local cache, and provides helpers for the supported entity types.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/Sternrassler/gitdata/pkg/cache"
	"github.com/Sternrassler/gitdata/pkg/client"
	"github.com/Sternrassler/gitdata/pkg/fields"
	"github.com/Sternrassler/gitdata/pkg/logging"
	"github.com/Sternrassler/gitdata/pkg/output"
	"github.com/Sternrassler/gitdata/pkg/pagination"
)

var (
	// ErrAborted is returned when the user chooses to exit at the prompt.
	ErrAborted = errors.New("aborted by user")

	// ErrNoPrompter is returned for SourcePrompt without a Prompter.
	ErrNoPrompter = errors.New("data source prompt requires a prompter")
)

// Source selects where Data reads from.
type Source string

const (
	SourceAPI    Source = "a"
	SourceCache  Source = "c"
	SourcePrompt Source = "p"
)

// ParseSource maps a user option to a Source by its first character,
// case-insensitive. Anything unrecognized means SourcePrompt.
func ParseSource(s string) Source {
	s = strings.TrimSpace(s)
	if s == "" {
		return SourcePrompt
	}
	switch Source(strings.ToLower(s[:1])) {
	case SourceAPI:
		return SourceAPI
	case SourceCache:
		return SourceCache
	default:
		return SourcePrompt
	}
}

func (s Source) String() string {
	switch s {
	case SourceAPI:
		return "api"
	case SourceCache:
		return "cache"
	default:
		return "prompt"
	}
}

// Choice is the answer to a data source prompt.
type Choice string

const (
	ChoiceAPI   Choice = "a"
	ChoiceCache Choice = "c"
	ChoiceExit  Choice = "x"
)

// Prompter asks the user where to read data from. cachedAt is nil when no
// cached data exists for the endpoint.
type Prompter interface {
	Choose(cachedAt *time.Time) (Choice, error)
}

// Query describes one data request.
type Query struct {
	// Endpoint is an API path ("/orgs/x/repos") or a full URL.
	Endpoint string

	// Entity selects default fields and the field catalog.
	Entity string

	// Fields to project; empty means the entity defaults.
	Fields []string

	// Constants are added to every record and to cached items.
	Constants fields.Record

	// Headers are sent with every page request.
	Headers http.Header
}

// Options configures a Service.
type Options struct {
	Source   Source
	Prompter Prompter

	// Cache is required for SourceCache and SourcePrompt. Without it the
	// service always reads from the API and writes no cache files.
	Cache *cache.Manager

	// MaxPages limits every walk. Zero means all pages.
	MaxPages int
}

// Service runs queries against one client.
type Service struct {
	client   *client.Client
	cache    *cache.Manager
	walker   *pagination.Walker
	source   Source
	prompter Prompter
	logger   zerolog.Logger
}

// NewService creates a query service.
func NewService(c *client.Client, opts Options) *Service {
	source := opts.Source
	if source == "" {
		source = SourcePrompt
	}
	return &Service{
		client:   c,
		cache:    opts.Cache,
		walker:   pagination.NewWalker(c, pagination.WithMaxPages(opts.MaxPages)),
		source:   source,
		prompter: opts.Prompter,
		logger:   logging.NewLogger("query"),
	}
}

// Client returns the underlying API client.
func (s *Service) Client() *client.Client {
	return s.client
}

func (s *Service) cacheKey(endpoint string) cache.Key {
	return cache.Key{Username: s.client.Credentials().Username, Endpoint: endpoint}
}

// Data returns the projected records for q. All pages are read.
func (s *Service) Data(ctx context.Context, q Query) ([]fields.Record, error) {
	if q.Endpoint == "" {
		return nil, client.ErrNoEndpoint
	}

	items, err := s.Items(ctx, q)
	if err != nil {
		return nil, err
	}

	projector := fields.Projector{
		Entity:    q.Entity,
		Fields:    q.Fields,
		Constants: q.Constants,
		OnUnknown: s.client.Session().UnknownField,
	}
	return projector.ProjectAll(items), nil
}

// Items returns the raw items for q from the chosen source. Items read from
// the API replace the cache file for the endpoint.
func (s *Service) Items(ctx context.Context, q Query) ([]json.RawMessage, error) {
	choice, err := s.choose(q.Endpoint)
	if err != nil {
		return nil, err
	}

	switch choice {
	case ChoiceAPI:
		items, err := s.FetchAll(ctx, q.Endpoint, q.Headers)
		if err != nil {
			return nil, err
		}
		s.updateCache(q, items)
		return items, nil

	case ChoiceCache:
		entry, err := s.cache.Get(s.cacheKey(q.Endpoint))
		if err != nil {
			return nil, err
		}
		s.logger.Debug().
			Str("file", s.cache.Path(s.cacheKey(q.Endpoint))).
			Msg("Data source: cache")
		return entry.Items, nil

	default:
		return nil, ErrAborted
	}
}

func (s *Service) choose(endpoint string) (Choice, error) {
	if s.cache == nil {
		return ChoiceAPI, nil
	}

	key := s.cacheKey(endpoint)
	switch s.source {
	case SourceAPI:
		return ChoiceAPI, nil
	case SourceCache:
		if !s.cache.Exists(key) {
			return "", fmt.Errorf("cached data requested, but none found: %w", cache.ErrCacheMiss)
		}
		return ChoiceCache, nil
	}

	if s.prompter == nil {
		return "", ErrNoPrompter
	}

	var cachedAt *time.Time
	if s.cache.Exists(key) {
		if ts, err := s.cache.Timestamp(key); err == nil {
			cachedAt = &ts
		} else {
			s.logger.Warn().Err(err).Str("key", key.String()).Msg("Ignoring unreadable cache file")
		}
	}

	choice, err := s.prompter.Choose(cachedAt)
	if err != nil {
		return "", fmt.Errorf("prompt for data source: %w", err)
	}
	if choice == ChoiceCache && cachedAt == nil {
		return "", fmt.Errorf("no cached data for %s: %w", endpoint, cache.ErrCacheMiss)
	}
	if choice != ChoiceAPI && choice != ChoiceCache {
		return ChoiceExit, nil
	}
	return choice, nil
}

func (s *Service) updateCache(q Query, items []json.RawMessage) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(s.cacheKey(q.Endpoint), items, q.Constants.Map()); err != nil {
		s.logger.Warn().Err(err).Str("endpoint", q.Endpoint).Msg("Failed to update cache")
	}
}

// FetchAll reads every page of endpoint from the API and returns the items
// in order. Array pages contribute their elements; any other JSON value
// counts as one item.
func (s *Service) FetchAll(ctx context.Context, endpoint string, headers http.Header) ([]json.RawMessage, error) {
	var items []json.RawMessage
	err := s.walker.Walk(ctx, endpoint, headers, func(page int, data []byte) error {
		if len(bytes.TrimSpace(data)) > 0 && !gjson.ValidBytes(data) {
			return fmt.Errorf("page %d of %s: invalid JSON", page, endpoint)
		}
		items = append(items, flatten(data)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func flatten(data []byte) []json.RawMessage {
	doc := gjson.ParseBytes(data)
	switch {
	case !doc.Exists(), doc.Type == gjson.Null:
		return nil
	case doc.IsArray():
		var items []json.RawMessage
		doc.ForEach(func(_, value gjson.Result) bool {
			items = append(items, json.RawMessage(value.Raw))
			return true
		})
		return items
	default:
		return []json.RawMessage{json.RawMessage(doc.Raw)}
	}
}

// CountItems estimates the number of items behind endpoint from its first
// and last pages.
func (s *Service) CountItems(ctx context.Context, endpoint string) (int, error) {
	if endpoint == "" {
		return 0, client.ErrNoEndpoint
	}
	return s.walker.Count(ctx, endpoint, nil)
}

// ToFile writes every item of endpoint to a JSON file. With minimize set,
// top-level URL fields are removed from object items. It returns the number
// of items written.
func (s *Service) ToFile(ctx context.Context, endpoint, filename string, headers http.Header, minimize bool) (int, error) {
	if output.FormatOf(filename) != output.FormatJSON {
		return 0, fmt.Errorf("%w: %s", output.ErrUnsupportedFormat, filename)
	}

	items, err := s.FetchAll(ctx, endpoint, headers)
	if err != nil {
		return 0, err
	}

	payload := make([]any, 0, len(items))
	for _, item := range items {
		var v any
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return 0, fmt.Errorf("decode item: %w", err)
		}
		if obj, ok := v.(map[string]any); ok && minimize {
			v = fields.RemoveURLs(obj)
		}
		payload = append(payload, v)
	}

	var buf bytes.Buffer
	if err := output.WriteRawJSON(&buf, payload); err != nil {
		return 0, err
	}
	if err := output.AtomicWrite(filename, buf.Bytes()); err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("file", filename).
		Int("items", len(payload)).
		Bool("minimized", minimize).
		Msg("Endpoint written to file")
	return len(payload), nil
}
