// Package cheapshark provides a client for the CheapShark multi-store deal
// aggregator API (no API key required).
package cheapshark

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the CheapShark operations used by dealwatch.
type Client interface {
	// Deals lists current deals, optionally bounded by price and minimum savings.
	Deals(ctx context.Context, opts DealsOptions) ([]Deal, error)
	// LookupGame finds a game by title and returns its price history summary.
	LookupGame(ctx context.Context, title string) (*GameSummary, error)
}

// DealsOptions bounds a Deals listing.
type DealsOptions struct {
	UpperPrice float64
	PageSize   int
}

// Deal is one CheapShark deal row. Prices are strings on the wire.
type Deal struct {
	DealID             string `json:"dealID"`
	Title              string `json:"title"`
	InternalName       string `json:"internalName"`
	StoreID            string `json:"storeID"`
	SalePrice          string `json:"salePrice"`
	NormalPrice        string `json:"normalPrice"`
	Savings            string `json:"savings"`
	SteamRatingPercent string `json:"steamRatingPercent"`
	SteamRatingCount   string `json:"steamRatingCount"`
	MetacriticScore    string `json:"metacriticScore"`
	Thumb              string `json:"thumb"`
}

// GameSummary is the price history summary for one game.
type GameSummary struct {
	Title              string  `json:"title"`
	CheapestPriceEver  float64 `json:"cheapest_price_ever"`
	HighestNormalPrice float64 `json:"highest_normal_price"`
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
	baseURL string
	http    *http.Client
}

// NewClient creates a CheapShark client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://www.cheapshark.com/api/1.0",
		http:    &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Deals(ctx context.Context, opts DealsOptions) ([]Deal, error) {
	q := url.Values{}
	q.Set("onSale", "1")
	if opts.UpperPrice > 0 {
		q.Set("upperPrice", fmt.Sprintf("%.2f", opts.UpperPrice))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}

	var deals []Deal
	if err := c.getJSON(ctx, c.baseURL+"/deals?"+q.Encode(), &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

type gameListEntry struct {
	GameID   string `json:"gameID"`
	External string `json:"external"`
	Cheapest string `json:"cheapest"`
}

type gameDetail struct {
	Info struct {
		Title string `json:"title"`
	} `json:"info"`
	CheapestPriceEver struct {
		Price string `json:"price"`
	} `json:"cheapestPriceEver"`
	Deals []struct {
		Price       string `json:"price"`
		RetailPrice string `json:"retailPrice"`
	} `json:"deals"`
}

func (c *httpClient) LookupGame(ctx context.Context, title string) (*GameSummary, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("limit", "1")

	var entries []gameListEntry
	if err := c.getJSON(ctx, c.baseURL+"/games?"+q.Encode(), &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	var detail gameDetail
	if err := c.getJSON(ctx, c.baseURL+"/games?id="+url.QueryEscape(entries[0].GameID), &detail); err != nil {
		return nil, err
	}

	summary := &GameSummary{Title: detail.Info.Title}
	summary.CheapestPriceEver, _ = strconv.ParseFloat(detail.CheapestPriceEver.Price, 64)
	for _, d := range detail.Deals {
		if retail, err := strconv.ParseFloat(d.RetailPrice, 64); err == nil && retail > summary.HighestNormalPrice {
			summary.HighestNormalPrice = retail
		}
	}
	return summary, nil
}

func (c *httpClient) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "cheapshark: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "cheapshark: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("cheapshark: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "cheapshark: read body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "cheapshark: decode response")
	}
	return nil
}
