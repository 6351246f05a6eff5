// Package ratelimit tracks the GitHub API rate limit reported in response headers.
// It reads X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Used,
// X-RateLimit-Reset and X-RateLimit-Resource after every call. The tracker only
// observes: it never delays or blocks a request.
package ratelimit

import (
	"fmt"
	"time"
)

// Response headers carrying the rate limit budget.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderUsed      = "X-RateLimit-Used"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderResource  = "X-RateLimit-Resource"
)

// Unknown is recorded for limit and remaining when a response carries no
// rate limit headers (e.g. responses from a proxy or an error page).
const Unknown = 999999

// WarningDivisor marks the budget as low once fewer than Limit/WarningDivisor
// calls remain.
const WarningDivisor = 10

// State is the rate limit budget reported by the most recent response.
type State struct {
	// Limit is the maximum number of calls allowed in the current window.
	Limit int `json:"limit"`

	// Remaining is the number of calls left in the current window.
	Remaining int `json:"remaining"`

	// Used is the number of calls made in the current window.
	Used int `json:"used"`

	// ResetAt is when the window resets. Zero if the header was absent.
	ResetAt time.Time `json:"reset_at"`

	// Resource is the rate limit bucket, e.g. "core" or "search".
	Resource string `json:"resource,omitempty"`

	// LastUpdate is when this state was recorded.
	LastUpdate time.Time `json:"last_update"`
}

// UnknownState returns the state recorded when no headers are available.
func UnknownState(now time.Time) State {
	return State{
		Limit:      Unknown,
		Remaining:  Unknown,
		LastUpdate: now,
	}
}

// IsUnknown returns true if the server did not report a budget.
func (s State) IsUnknown() bool {
	return s.Limit == Unknown && s.Remaining == Unknown
}

// IsStale returns true if the state is older than maxAge.
func (s State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// Exhausted returns true once no calls remain.
func (s State) Exhausted() bool {
	return !s.IsUnknown() && s.Limit > 0 && s.Remaining <= 0
}

// IsLow returns true if the remaining budget dropped below the warning level.
func (s State) IsLow() bool {
	if s.IsUnknown() || s.Limit <= 0 {
		return false
	}
	return s.Remaining < s.Limit/WarningDivisor
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed or is unknown.
func (s State) TimeUntilReset() time.Duration {
	if s.ResetAt.IsZero() {
		return 0
	}
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// String renders the budget as "N available, M used, T total".
func (s State) String() string {
	return fmt.Sprintf("%d available, %d used, %d total", s.Remaining, s.Used, s.Limit)
}
