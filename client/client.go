// Package client is the Go SDK for the soar library service.
package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/Trewaters/soar-sub011/client/internal/api"
	errs "github.com/Trewaters/soar-sub011/client/internal/errors"
	"github.com/Trewaters/soar-sub011/internal/model"
)

type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string // optional; sent as a bearer token when set
	retry   retryPolicy
}

type retryPolicy struct {
	maxRetries  uint64
	baseBackoff time.Duration
	maxInterval time.Duration
}

// New constructs a Client for the service at baseURL.
// Additional options can be provided via functional arguments.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("baseURL cannot be empty")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retryPolicy{baseBackoff: 100 * time.Millisecond, maxInterval: 2 * time.Second},
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.apiKey != "" {
		c.wrapTransportWithAPIKey()
	}
	return c, nil
}

// wrapTransportWithAPIKey wraps the HTTP client's transport to automatically
// add the Authorization header to all requests using the configured API key.
func (c *Client) wrapTransportWithAPIKey() {
	baseTransport := c.http.Transport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}
	c.http.Transport = &apiKeyTransport{
		base:   baseTransport,
		apiKey: c.apiKey,
	}
}

// apiKeyTransport wraps an http.RoundTripper to automatically add Authorization header
type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(cloned)
}

// GetLibrary fetches one page of the library. It satisfies loader.Fetcher.
func (c *Client) GetLibrary(ctx context.Context, req model.PageRequest) (*model.PageResult, error) {
	var res *model.PageResult
	err := c.call(ctx, "get_library", func(ctx context.Context) error {
		var err error
		res, err = api.GetLibrary(ctx, c.http, c.baseURL, req)
		return err
	})
	return res, err
}

// Search runs a title search across the requested collections.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var res *SearchResponse
	err := c.call(ctx, "search", func(ctx context.Context) error {
		var err error
		res, err = api.Search(ctx, c.http, c.baseURL, req)
		return err
	})
	return res, err
}

// call runs fn, retrying recoverable failures when WithRetry was set.
func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	attempt := 0
	err := backoff.Retry(func() error {
		if attempt > 0 {
			requestRetriesTotal.WithLabelValues(op).Inc()
		}
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errs.IsIrrecoverable(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var ce *errs.ClassifiedError
		if !errors.As(err, &ce) {
			// decode failures and the like will not improve on retry
			return backoff.Permanent(err)
		}
		return err
	}, c.backOff(ctx))
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(op, outcome(err)).Inc()
	return err
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retry.baseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = c.retry.maxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, c.retry.maxRetries), ctx)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errs.IsIrrecoverable(err):
		return "rejected"
	default:
		return "failed"
	}
}
