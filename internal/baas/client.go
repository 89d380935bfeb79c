// Package baas is a small client for a Supabase-compatible backend: GoTrue
// for auth under /auth/v1 and PostgREST for row access under /rest/v1.
package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "lacag/1.0"
)

var (
	// ErrUnauthorized indicates a missing, expired or rejected access token,
	// or a row-level-security denial.
	ErrUnauthorized = errors.New("baas: unauthorized")
	// ErrRateLimited indicates the backend asked us to slow down.
	ErrRateLimited = errors.New("baas: rate limited")
	// ErrNotFound indicates an update or delete matched no row.
	ErrNotFound = errors.New("baas: no matching row")
	// ErrNotConfigured is returned by NewClient when no backend URL is set.
	ErrNotConfigured = errors.New("baas: backend url not configured")
)

// APIError is a non-2xx response that is not one of the sentinel cases.
type APIError struct {
	Status  int
	Code    string
	Message string
	Hint    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("baas: status %d", e.Status)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Hint != "" {
		msg += " [" + e.Hint + "]"
	}
	return msg
}

// Options configures a Client.
type Options struct {
	URL        string
	AnonKey    string
	Timeout    time.Duration
	RatePerSec float64 // <= 0 disables client-side limiting
	HTTPClient *http.Client
}

// Client talks to one backend project.
type Client struct {
	baseURL string
	anonKey string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewClient validates opts and returns a ready client.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if raw == "" {
		return nil, ErrNotConfigured
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("baas: invalid backend url %q", opts.URL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), max(1, int(opts.RatePerSec)))
	}

	return &Client{
		baseURL: raw,
		anonKey: strings.TrimSpace(opts.AnonKey),
		timeout: timeout,
		http:    hc,
		limiter: limiter,
		now:     time.Now,
	}, nil
}

// BaseURL returns the normalized project URL.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method  string
	path    string
	query   url.Values
	token   string
	body    any
	headers map[string]string
}

// do performs one request and returns the response body.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("baas: waiting for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("baas: encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("baas: creating request: %w", err)
	}

	bearer := r.token
	if bearer == "" {
		bearer = c.anonKey
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	//nolint:gosec // URL is built from the configured project URL
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("baas: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("baas: reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if apiErr := parseAPIError(resp.StatusCode, data); apiErr.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		}
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// parseAPIError reads the error shapes of both PostgREST and GoTrue.
func parseAPIError(status int, data []byte) *APIError {
	var raw struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Code             any    `json:"code"`
		Hint             string `json:"hint"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, &raw); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
		return apiErr
	}

	apiErr.Hint = raw.Hint
	if raw.Code != nil {
		apiErr.Code = fmt.Sprint(raw.Code)
	}
	for _, m := range []string{raw.Message, raw.Msg, raw.ErrorDescription, raw.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	return apiErr
}
