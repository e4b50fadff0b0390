package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gameradar/dealwatch/internal/model"
)

var errGGDealsAPI = eris.New("ggdeals: api reported failure")

// GGDeals adapts the GG.deals aggregator API. Requires an API key; the
// registry skips this source when none is configured.
type GGDeals struct {
	client  *Client
	apiKey  string
	baseURL string
}

// NewGGDeals creates the GG.deals adapter.
func NewGGDeals(client *Client, apiKey string) *GGDeals {
	return &GGDeals{
		client:  client,
		apiKey:  apiKey,
		baseURL: "https://api.gg.deals/v1/deals/list/",
	}
}

// WithBaseURL overrides the API URL (for testing).
func (g *GGDeals) WithBaseURL(u string) *GGDeals {
	g.baseURL = u
	return g
}

type ggDealsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Deals []struct {
			ID          int     `json:"id"`
			Title       string  `json:"title"`
			DealPrice   float64 `json:"dealPrice"`
			RetailPrice float64 `json:"retailPrice"`
			Discount    int     `json:"discount"`
			ShopName    string  `json:"shopName"`
			URL         string  `json:"url"`
			Image       string  `json:"image"`
			ExpiryUnix  int64   `json:"expiry"`
		} `json:"deals"`
	} `json:"data"`
}

// Fetch returns the aggregated deal list.
func (g *GGDeals) Fetch(ctx context.Context) ([]model.Deal, error) {
	q := url.Values{}
	q.Set("key", g.apiKey)
	q.Set("region", "eu")
	q.Set("limit", "60")

	var parsed ggDealsResponse
	if err := g.client.GetJSON(ctx, g.baseURL+"?"+q.Encode(), &parsed); err != nil {
		return nil, err
	}
	if !parsed.Success {
		return nil, errGGDealsAPI
	}

	var deals []model.Deal
	for _, r := range parsed.Data.Deals {
		kind := model.KindDiscounted
		if r.DealPrice == 0 {
			kind = model.KindFree
		}
		d := model.Deal{
			Source:          model.SourceGGDeals,
			SourceID:        fmt.Sprintf("%d", r.ID),
			Title:           r.Title,
			CurrentPrice:    r.DealPrice,
			OriginalPrice:   r.RetailPrice,
			Currency:        "EUR",
			DiscountPercent: r.Discount,
			Kind:            kind,
			Platform:        model.PlatformPC,
			StoreURL:        r.URL,
			ImageURL:        r.Image,
			Description:     r.ShopName,
		}
		if r.ExpiryUnix > 0 {
			end := time.Unix(r.ExpiryUnix, 0).UTC()
			d.EndsAt = &end
		}
		deals = append(deals, d)
	}

	return Finalize(deals), nil
}
