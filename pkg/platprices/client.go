// Package platprices provides a client for the PlatPrices PlayStation price
// tracking API. Requires an API key.
package platprices

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the PlatPrices operations used by the PlayStation adapter.
type Client interface {
	// Discounted lists currently discounted PSN titles for a region.
	Discounted(ctx context.Context, region string) ([]Offer, error)
}

// Offer is one discounted PSN title.
type Offer struct {
	PPID         int    `json:"PPID"`
	Name         string `json:"Name"`
	SalePrice    int    `json:"SalePrice"` // cents
	BasePrice    int    `json:"BasePrice"` // cents
	DiscountPct  int    `json:"DiscPercent"`
	PSPlusPrice  int    `json:"PlusPrice"` // cents, zero when no separate Plus price
	Platforms    string `json:"Platforms"` // e.g. "PS4,PS5"
	ProductURL   string `json:"PSStoreURL"`
	ImageURL     string `json:"Img"`
	SaleEndsUnix int64  `json:"SaleEnds"`
}

type discountedResponse struct {
	Error string  `json:"error"`
	Games []Offer `json:"games"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a PlatPrices client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://platprices.com/api.php",
		http:    &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Discounted(ctx context.Context, region string) ([]Offer, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("mode", "discounts")
	if region != "" {
		q.Set("region", region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "platprices: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "platprices: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("platprices: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "platprices: read body")
	}

	var parsed discountedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "platprices: decode response")
	}
	if parsed.Error != "" {
		return nil, eris.Errorf("platprices: api error: %s", parsed.Error)
	}
	return parsed.Games, nil
}
