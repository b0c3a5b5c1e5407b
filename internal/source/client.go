// Package source fetches raw upstream documents and extracts incident
// tuples from them. Fetchers never fail a run: a bad upstream response
// degrades to an empty result for that URL and the run continues.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/outagewatch/outagewatch/internal/model"
	"github.com/outagewatch/outagewatch/internal/util"
	"github.com/outagewatch/outagewatch/internal/worker"
)

// fetchSleep is the sleep function used between retries (injectable for tests).
var fetchSleep = time.Sleep

// Client is the shared HTTP client for all fetchers: timeout, redirect
// cap, body limit, per-host rate limiting and bounded retry on transient
// upstream failures.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	limiter    *worker.Limiter
	robots     *util.RobotsChecker // nil disables robots gating
}

// NewClient creates a fetch client. limiter and robots may be nil.
func NewClient(cfg model.HTTPConfig, limiter *worker.Limiter, robots *util.RobotsChecker) *Client {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		maxRetries: cfg.MaxRetries,
		limiter:    limiter,
		robots:     robots,
	}
}

// Fetch retrieves the URL's body. Used for structured status APIs.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return c.fetch(ctx, rawURL, 0)
}

// FetchPolite additionally consults robots.txt and honors the host's
// crawl delay. Used for syndication feed hosts.
func (c *Client) FetchPolite(ctx context.Context, rawURL string) ([]byte, error) {
	var delay time.Duration
	if c.robots != nil {
		allowed, d, err := c.robots.CanFetch(ctx, rawURL)
		if err == nil && !allowed {
			return nil, fmt.Errorf("robots.txt disallows %s", rawURL)
		}
		delay = d
	}
	return c.fetch(ctx, rawURL, delay)
}

func (c *Client) fetch(ctx context.Context, rawURL string, crawlDelay time.Duration) ([]byte, error) {
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	backoff := 500 * time.Millisecond
	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			fetchSleep(backoff)
			if backoff < 8*time.Second {
				backoff *= 2
			}
		}

		if c.limiter != nil {
			if err := c.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
				return nil, err
			}
			crawlDelay = 0 // applies once per invocation
		}

		body, retryable, err := c.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}
