// Package client provides the GitHub REST API client: authenticated GET
// requests, Link header pagination and per-session usage accounting.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/gitdata/pkg/auth"
	"github.com/Sternrassler/gitdata/pkg/logging"
	"github.com/Sternrassler/gitdata/pkg/pagination"
	"github.com/Sternrassler/gitdata/pkg/session"
)

// Prometheus metrics for GitHub client operations.
var (
	githubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_requests_total",
		Help: "Total GitHub API requests by status",
	}, []string{"status"})

	githubRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "github_request_duration_seconds",
		Help:    "GitHub API request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	githubResponseBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_response_bytes_total",
		Help: "Total bytes received in GitHub API response bodies",
	})

	githubErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_errors_total",
		Help: "Total GitHub API errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the GitHub REST API root.
	DefaultBaseURL = "https://api.github.com"

	// DefaultAccept selects the v3 media type.
	DefaultAccept = "application/vnd.github.v3+json"

	// LicensePreviewAccept includes license information in repo listings.
	LicensePreviewAccept = "application/vnd.github.drax-preview+json"

	// DefaultUserAgent is sent when the configuration names none.
	DefaultUserAgent = "gitdata"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is prepended to endpoints that start with "/".
	BaseURL string

	// UserAgent header (GitHub rejects requests without one).
	UserAgent string

	// Credentials for basic auth. Zero value means anonymous access.
	Credentials auth.Credentials

	// Timeout per HTTP request.
	Timeout time.Duration

	// Session receives usage accounting. A new session is created if nil.
	Session *session.Session

	// HTTPClient overrides the HTTP client (Timeout is then ignored).
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration for anonymous access to api.github.com.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// Client is the GitHub API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	session    *session.Session
	logger     zerolog.Logger
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Links      pagination.Links
	URL        string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	sess := cfg.Session
	if sess == nil {
		sess = session.New("client")
	}
	sess.SetUsername(cfg.Credentials.Username)

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		config:     cfg,
		session:    sess,
		logger:     logging.NewLogger("github-client"),
	}, nil
}

// Session returns the session accounting this client's calls.
func (c *Client) Session() *session.Session {
	return c.session
}

// Credentials returns the credentials the client authenticates with.
func (c *Client) Credentials() auth.Credentials {
	return c.config.Credentials
}

// URL resolves an endpoint: paths starting with "/" are relative to the
// base URL, anything else is used as a full URL.
func (c *Client) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "/") {
		return c.baseURL + endpoint
	}
	return endpoint
}

// Do executes req, reads the whole body and records the call in the
// session. Non-2xx responses are returned without error; only transport
// failures produce an error.
func (c *Client) Do(req *http.Request) (*Response, error) {
	endpoint := req.URL.String()

	startTime := time.Now()
	defer func() {
		githubRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", DefaultAccept)
	}
	if creds := c.config.Credentials; !creds.Anonymous() {
		req.SetBasicAuth(creds.Username, creds.Token)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing GitHub request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		class := classify(0, nil, err)
		githubErrorsTotal.WithLabelValues(string(class)).Inc()
		githubRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &APIError{
			ErrorClass: class,
			Endpoint:   endpoint,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		githubErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpoint,
			Message:    "read response body",
			Err:        err,
		}
	}

	tracker := c.session.Tracker()
	if err := tracker.UpdateFromHeaders(resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to parse rate limit headers")
	}
	c.session.RecordCall(resp.StatusCode, len(body))
	githubRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	githubResponseBytesTotal.Add(float64(len(body)))

	out := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		Links:      pagination.FromResponse(resp),
		URL:        endpoint,
	}

	rate := tracker.State()
	if out.OK() {
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Int("bytes", len(body)).
			Dur("duration", time.Since(startTime)).
			Int("remaining", rate.Remaining).
			Msgf("%s (user = %s)", rate, c.userLabel())
	} else {
		class := classify(resp.StatusCode, resp.Header, nil)
		githubErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Int("bytes", len(body)).
			Str("error_class", string(class)).
			Str("message", errorMessage(resp.Status, body)).
			Msg("GitHub request error")
	}

	return out, nil
}

// Get performs a GET request. Caller headers override the defaults.
func (c *Client) Get(ctx context.Context, endpoint string, headers http.Header) (*Response, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", DefaultAccept)
	for name, values := range headers {
		req.Header.Del(name)
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	return c.Do(req)
}

// FetchPage implements pagination.PageFetcher. Non-2xx responses are
// returned as *APIError.
func (c *Client) FetchPage(ctx context.Context, pageURL string, headers http.Header) ([]byte, pagination.Links, error) {
	resp, err := c.Get(ctx, pageURL, headers)
	if err != nil {
		return nil, pagination.Links{}, err
	}
	if !resp.OK() {
		return nil, resp.Links, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classify(resp.StatusCode, resp.Header, nil),
			Endpoint:   resp.URL,
			Message:    errorMessage(resp.Status, resp.Body),
		}
	}
	return resp.Body, resp.Links, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) userLabel() string {
	if c.config.Credentials.Username == "" {
		return "anonymous"
	}
	return c.config.Credentials.Username
}
