// Package api is the HTTP layer for the ESIOS REST API: a transport
// with retry, rate limiting, and redirect-aware downloads, plus the
// wire types the endpoints return.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/colthorp/esios-cli-go/internal/core"
)

// Transport is the request surface the endpoint managers depend on.
// The production implementation is Client; tests substitute an
// in-memory fake.
type Transport interface {
	// Get issues an authenticated GET against an API endpoint path
	// (e.g. "indicators/600") and returns the raw JSON body.
	Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error)

	// Download fetches raw bytes from an API download path, following
	// a single presigned redirect without credentials.
	Download(ctx context.Context, path string) ([]byte, error)
}

// ClientConfig holds transport options. The retry waits exist mostly
// for tests; zero values take the production defaults.
type ClientConfig struct {
	Token        string
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   uint64
	RetryMinWait time.Duration
	RetryMaxWait time.Duration
}

// Client is the production ESIOS transport. Safe for concurrent use.
type Client struct {
	token        string
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
	maxRetries   uint64
	retryMinWait time.Duration
	retryMaxWait time.Duration
	log          zerolog.Logger
}

// NewClient creates an API client. The token must be non-empty; callers
// resolve it from flag, environment, or config beforehand.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("API key required: pass --token or set %s", core.APIKeyEnvVar)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = core.APIBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = core.DefaultTimeoutSeconds * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = core.MaxRetries
	}
	retryMin := cfg.RetryMinWait
	if retryMin == 0 {
		retryMin = core.RetryMinWaitSeconds * time.Second
	}
	retryMax := cfg.RetryMaxWait
	if retryMax == 0 {
		retryMax = core.RetryMaxWaitSeconds * time.Second
	}
	return &Client{
		token:   cfg.Token,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			// Redirects carry the API key to a foreign host otherwise;
			// Download follows them explicitly with a bare request.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter:      rate.NewLimiter(rate.Limit(core.RequestsPerSecond), 1),
		maxRetries:   maxRetries,
		retryMinWait: retryMin,
		retryMaxWait: retryMax,
		log:          core.Logger("api"),
	}, nil
}

// Get implements Transport. Auth failures (401/403) and client errors
// abort immediately; 5xx and 429 responses and network errors are
// retried with exponential back-off.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	urlStr := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		urlStr = fmt.Sprintf("%s?%s", urlStr, params.Encode())
	}

	var body []byte
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)

		t0 := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Debug().Str("url", urlStr).Err(err).Msg("request failed")
			return &NetworkError{Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &NetworkError{Err: err}
		}
		c.log.Debug().
			Str("url", urlStr).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(t0)).
			Int("bytes", len(data)).
			Msg("GET")

		if err := classifyStatus(resp.StatusCode, data); err != nil {
			return err
		}
		body = data
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		return nil, err
	}
	return body, nil
}

// Download implements Transport. ESIOS answers archive downloads with
// a 307 to a presigned storage URL; the redirect is followed with a
// plain request because forwarding the API key there causes a 400.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	urlStr := path
	if u, err := url.Parse(path); err == nil && !u.IsAbs() {
		urlStr = fmt.Sprintf("%s/%s", c.baseURL, path)
	}

	var body []byte
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return &NetworkError{Err: err}
		}

		if isRedirect(resp.StatusCode) {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				return &APIError{Status: resp.StatusCode, Message: "redirect without Location"}
			}
			c.log.Debug().Str("url", truncate(loc, 100)).Msg("following download redirect")
			redirectReq, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err = c.http.Do(redirectReq)
			if err != nil {
				return &NetworkError{Err: err}
			}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &NetworkError{Err: err}
		}
		c.log.Debug().Str("url", urlStr).Int("status", resp.StatusCode).Int("bytes", len(data)).Msg("download")

		if err := classifyStatus(resp.StatusCode, data); err != nil {
			return err
		}
		body = data
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) retry(ctx context.Context, op backoff.Operation) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryMinWait
	eb.MaxInterval = c.retryMaxWait
	b := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)
	return backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Dur("wait", wait).Msg("retrying request")
	})
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.token)
	req.Header.Set("Accept", "application/json; application/vnd.esios-api-v1+json")
	req.Header.Set("Content-Type", "application/json")
}

// classifyStatus maps an HTTP status to the error taxonomy. Auth and
// other 4xx errors are permanent; 5xx and 429 stay retryable.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return backoff.Permanent(&AuthError{Status: status})
	case status >= 500 || status == http.StatusTooManyRequests:
		return &APIError{Status: status, Message: truncate(string(body), 200)}
	case status >= 400:
		return backoff.Permanent(&APIError{Status: status, Message: truncate(string(body), 200)})
	}
	return nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
