package ratelimit

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker(buf *bytes.Buffer) *Tracker {
	logger := zerolog.New(buf).Level(zerolog.DebugLevel)
	tr := NewTracker(logger)
	tr.now = func() time.Time { return time.Unix(1700000000, 0) }
	return tr
}

func TestTracker_InitialStateUnknown(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	if !tr.State().IsUnknown() {
		t.Errorf("expected unknown state before the first response, got %+v", tr.State())
	}
}

func TestUpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name          string
		headers       map[string]string
		wantLimit     int
		wantRemaining int
		wantUsed      int
		wantReset     int64
		wantResource  string
		wantErr       bool
		wantLog       string
	}{
		{
			name: "full header set",
			headers: map[string]string{
				HeaderLimit:     "5000",
				HeaderRemaining: "4987",
				HeaderUsed:      "13",
				HeaderReset:     "1700003600",
				HeaderResource:  "core",
			},
			wantLimit: 5000, wantRemaining: 4987, wantUsed: 13, wantReset: 1700003600, wantResource: "core",
			wantLog: "Rate limit state updated",
		},
		{
			name: "used derived from limit and remaining",
			headers: map[string]string{
				HeaderLimit:     "60",
				HeaderRemaining: "58",
			},
			wantLimit: 60, wantRemaining: 58, wantUsed: 2,
		},
		{
			name:      "missing headers record sentinel",
			headers:   map[string]string{},
			wantLimit: Unknown, wantRemaining: Unknown,
			wantLog: "No rate limit headers",
		},
		{
			name: "low budget warns",
			headers: map[string]string{
				HeaderLimit:     "60",
				HeaderRemaining: "3",
			},
			wantLimit: 60, wantRemaining: 3, wantUsed: 57,
			wantLog: "running low",
		},
		{
			name: "exhausted budget",
			headers: map[string]string{
				HeaderLimit:     "60",
				HeaderRemaining: "0",
				HeaderReset:     "1700000060",
			},
			wantLimit: 60, wantRemaining: 0, wantUsed: 60, wantReset: 1700000060,
			wantLog: "exhausted",
		},
		{
			name: "malformed remaining",
			headers: map[string]string{
				HeaderLimit:     "5000",
				HeaderRemaining: "lots",
			},
			wantLimit: 5000, wantRemaining: Unknown,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tr := newTestTracker(buf)

			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			err := tr.UpdateFromHeaders(headers)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateFromHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}

			state := tr.State()
			if state.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", state.Limit, tt.wantLimit)
			}
			if state.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.wantRemaining)
			}
			if state.Used != tt.wantUsed {
				t.Errorf("Used = %d, want %d", state.Used, tt.wantUsed)
			}
			if tt.wantReset != 0 && state.ResetAt.Unix() != tt.wantReset {
				t.Errorf("ResetAt = %d, want %d", state.ResetAt.Unix(), tt.wantReset)
			}
			if state.Resource != tt.wantResource {
				t.Errorf("Resource = %q, want %q", state.Resource, tt.wantResource)
			}
			if !state.LastUpdate.Equal(time.Unix(1700000000, 0)) {
				t.Errorf("LastUpdate = %v", state.LastUpdate)
			}
			if tt.wantLog != "" && !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("log output %q does not contain %q", buf.String(), tt.wantLog)
			}
		})
	}
}

func TestUpdateFromHeaders_LaterResponseWins(t *testing.T) {
	tr := NewTracker(zerolog.Nop())

	first := http.Header{}
	first.Set(HeaderLimit, "5000")
	first.Set(HeaderRemaining, "4000")
	if err := tr.UpdateFromHeaders(first); err != nil {
		t.Fatal(err)
	}

	if err := tr.UpdateFromHeaders(http.Header{}); err != nil {
		t.Fatal(err)
	}
	if !tr.State().IsUnknown() {
		t.Errorf("expected headerless response to reset the state, got %+v", tr.State())
	}
}
