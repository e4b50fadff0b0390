package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/gameradar/dealwatch/internal/resilience"
)

// ClientOptions configures the shared storefront HTTP client.
type ClientOptions struct {
	UserAgent    string
	Timeout      time.Duration
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns the per-host rate limiters for the known
// storefront APIs. Hosts without an entry are unthrottled.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"store.steampowered.com": rate.NewLimiter(4, 4),
		"www.cheapshark.com":     rate.NewLimiter(2, 2),
		"www.gamerpower.com":     rate.NewLimiter(2, 2),
		"api.gg.deals":           rate.NewLimiter(1, 2),
		"platprices.com":         rate.NewLimiter(1, 2),
	}
}

// Client is the shared HTTP client all adapters fetch through. It applies
// per-host rate limits and retries transient failures.
type Client struct {
	http     *http.Client
	opts     ClientOptions
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a Client with the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "dealwatch/1.0"
	}
	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
	}
}

// HTTP exposes the underlying http.Client so the pkg API clients share the
// same transport and timeout.
func (c *Client) HTTP() *http.Client {
	return c.http
}

// Throttled reports whether requests to host are rate limited.
func (c *Client) Throttled(host string) bool {
	return c.limiterFor(host) != nil
}

// GetJSON fetches rawURL and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "source: decode %s", rawURL)
	}
	return nil
}

// Get fetches rawURL with rate limiting and retries, returning the body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "source: parse url %s", rawURL)
	}

	if lim := c.limiterFor(u.Host); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "source: rate wait %s", u.Host)
		}
	}

	return resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "source: create request")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "source: get %s", u.Host)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("source: %s returned status %d", u.Host, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "source: read body")
		}
		return body, nil
	})
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiters[host]
}
