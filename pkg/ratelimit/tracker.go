package ratelimit

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	githubRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "github_rate_limit_remaining",
		Help: "Calls remaining in the current GitHub rate limit window",
	})

	githubRateLimitLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "github_rate_limit_limit",
		Help: "Size of the current GitHub rate limit window",
	})

	githubRateLimitWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_rate_limit_warnings_total",
		Help: "Responses that reported a low remaining rate limit budget",
	})

	githubRateLimitMissingTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_rate_limit_headers_missing_total",
		Help: "Responses without rate limit headers",
	})
)

// Tracker records the rate limit state of the most recent response.
type Tracker struct {
	mu     sync.RWMutex
	state  State
	seen   bool
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		logger: logger,
		now:    time.Now,
	}
}

// State returns a copy of the current state. Before the first response the
// state is unknown.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.seen {
		return UnknownState(t.now())
	}
	return t.state
}

// UpdateFromHeaders parses the rate limit headers of a response and records
// them. Missing limit or remaining headers record the Unknown sentinel. A
// malformed value is reported as an error after the rest of the headers have
// been applied.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	now := t.now()
	limitStr := headers.Get(HeaderLimit)
	remainStr := headers.Get(HeaderRemaining)

	if limitStr == "" || remainStr == "" {
		t.store(UnknownState(now))
		githubRateLimitMissingTotal.Inc()
		t.logger.Debug().Msg("No rate limit headers in response")
		return nil
	}

	var errs []error
	state := State{
		Limit:      parseInt(HeaderLimit, limitStr, Unknown, &errs),
		Remaining:  parseInt(HeaderRemaining, remainStr, Unknown, &errs),
		Resource:   headers.Get(HeaderResource),
		LastUpdate: now,
	}

	if usedStr := headers.Get(HeaderUsed); usedStr != "" {
		state.Used = parseInt(HeaderUsed, usedStr, 0, &errs)
	} else if state.Limit != Unknown && state.Remaining != Unknown {
		state.Used = state.Limit - state.Remaining
	}

	if resetStr := headers.Get(HeaderReset); resetStr != "" {
		if reset := parseInt(HeaderReset, resetStr, 0, &errs); reset > 0 {
			state.ResetAt = time.Unix(int64(reset), 0)
		}
	}

	t.store(state)

	githubRateLimitRemaining.Set(float64(state.Remaining))
	githubRateLimitLimit.Set(float64(state.Limit))

	if state.Exhausted() {
		githubRateLimitWarningsTotal.Inc()
		t.logger.Error().
			Int("limit", state.Limit).
			Time("reset_at", state.ResetAt).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("GitHub rate limit exhausted")
	} else if state.IsLow() {
		githubRateLimitWarningsTotal.Inc()
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit running low")
	} else {
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Int("used", state.Used).
			Int("limit", state.Limit).
			Msg("Rate limit state updated")
	}

	return errors.Join(errs...)
}

func (t *Tracker) store(state State) {
	t.mu.Lock()
	t.state = state
	t.seen = true
	t.mu.Unlock()
}

func parseInt(header, value string, fallback int, errs *[]error) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s header: %w", header, err))
		return fallback
	}
	return n
}
