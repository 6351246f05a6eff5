// Package session keeps usage accounting for one run against the GitHub API:
// calls made, bytes received, response statuses, the latest rate limit
// budget and any requested fields the API items did not have.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/gitdata/pkg/logging"
	"github.com/Sternrassler/gitdata/pkg/ratelimit"
)

// Session accumulates usage counters. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	name     string
	username string
	started  time.Time
	calls    int
	bytes    int64
	statuses map[int]int
	unknown  map[string]struct{}

	tracker *ratelimit.Tracker
	logger  zerolog.Logger
	now     func() time.Time
}

// Stats is a point-in-time copy of a session's counters.
type Stats struct {
	Name          string          `json:"name"`
	Username      string          `json:"username,omitempty"`
	Started       time.Time       `json:"started"`
	Elapsed       time.Duration   `json:"elapsed"`
	APICalls      int             `json:"api_calls"`
	Bytes         int64           `json:"bytes"`
	Statuses      map[int]int     `json:"statuses"`
	RateLimit     ratelimit.State `json:"rate_limit"`
	UnknownFields []string        `json:"unknown_fields,omitempty"`
}

// String renders a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("%s: %d API calls, %d bytes, %.2f seconds, rate limit %s",
		s.Name, s.APICalls, s.Bytes, s.Elapsed.Seconds(), s.RateLimit)
}

// New creates a session named name. The session starts immediately.
func New(name string) *Session {
	logger := logging.NewLogger("session")
	s := &Session{
		name:     name,
		statuses: make(map[int]int),
		unknown:  make(map[string]struct{}),
		tracker:  ratelimit.NewTracker(logging.NewLogger("ratelimit")),
		logger:   logger,
		now:      time.Now,
	}
	s.started = s.now()
	return s
}

// Tracker returns the rate limit tracker fed by this session's responses.
func (s *Session) Tracker() *ratelimit.Tracker {
	return s.tracker
}

// SetUsername records the GitHub user the session authenticates as.
func (s *Session) SetUsername(username string) {
	s.mu.Lock()
	s.username = username
	s.mu.Unlock()
}

// Begin resets the counters and starts timing a new unit of work.
func (s *Session) Begin(label string) {
	s.mu.Lock()
	s.name = label
	s.started = s.now()
	s.calls = 0
	s.bytes = 0
	s.statuses = make(map[int]int)
	s.unknown = make(map[string]struct{})
	s.mu.Unlock()

	s.logger.Debug().Str("session", label).Msg("Session started")
}

// End logs the session summary and returns the final counters.
func (s *Session) End() Stats {
	stats := s.Snapshot()
	s.logger.Info().
		Str("session", stats.Name).
		Str("user", stats.Username).
		Int("api_calls", stats.APICalls).
		Int64("bytes", stats.Bytes).
		Dur("elapsed", stats.Elapsed).
		Int("remaining", stats.RateLimit.Remaining).
		Msg("Session finished")
	return stats
}

// RecordCall counts one API response.
func (s *Session) RecordCall(status int, bytes int) {
	s.mu.Lock()
	s.calls++
	s.bytes += int64(bytes)
	s.statuses[status]++
	s.mu.Unlock()
}

// UnknownField records a requested field that an API item did not have.
func (s *Session) UnknownField(name string) {
	s.mu.Lock()
	s.unknown[name] = struct{}{}
	s.mu.Unlock()
}

// UnknownFields returns the recorded unknown field names, sorted.
func (s *Session) UnknownFields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unknownLocked()
}

func (s *Session) unknownLocked() []string {
	if len(s.unknown) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.unknown))
	for name := range s.unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.started)
}

// Snapshot returns a copy of the current counters.
func (s *Session) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make(map[int]int, len(s.statuses))
	for code, n := range s.statuses {
		statuses[code] = n
	}

	return Stats{
		Name:          s.name,
		Username:      s.username,
		Started:       s.started,
		Elapsed:       s.now().Sub(s.started),
		APICalls:      s.calls,
		Bytes:         s.bytes,
		Statuses:      statuses,
		RateLimit:     s.tracker.State(),
		UnknownFields: s.unknownLocked(),
	}
}

// LogStatus logs the rate limit budget the way verbose mode reports it.
func (s *Session) LogStatus() {
	s.mu.Lock()
	username := s.username
	s.mu.Unlock()

	state := s.tracker.State()
	if username == "" {
		username = "anonymous"
	}
	s.logger.Info().
		Int("remaining", state.Remaining).
		Int("used", state.Used).
		Int("limit", state.Limit).
		Str("user", username).
		Msgf("%s (user = %s)", state, username)
}
