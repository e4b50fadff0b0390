package source

import (
	"context"
	"fmt"

	"github.com/gameradar/dealwatch/internal/model"
)

const gogFilteredURL = "https://www.gog.com/games/ajax/filtered?mediaType=game&price=discounted&sort=popularity"

// GOG fetches discounted games from the DRM-free GOG storefront.
type GOG struct {
	client  *Client
	baseURL string
}

// NewGOG creates the GOG adapter.
func NewGOG(client *Client) *GOG {
	return &GOG{client: client, baseURL: gogFilteredURL}
}

// WithBaseURL overrides the catalog URL (for testing).
func (g *GOG) WithBaseURL(u string) *GOG {
	g.baseURL = u
	return g
}

type gogResponse struct {
	Products []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		Price struct {
			Amount             string `json:"amount"`
			BaseAmount         string `json:"baseAmount"`
			DiscountPercentage int    `json:"discountPercentage"`
			IsFree             bool   `json:"isFree"`
		} `json:"price"`
		Image string `json:"image"`
		URL   string `json:"url"`
	} `json:"products"`
}

// Fetch returns the discounted catalog page.
func (g *GOG) Fetch(ctx context.Context) ([]model.Deal, error) {
	var parsed gogResponse
	if err := g.client.GetJSON(ctx, g.baseURL, &parsed); err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, p := range parsed.Products {
		kind := model.KindDiscounted
		if p.Price.IsFree {
			kind = model.KindFree
		}
		deals = append(deals, model.Deal{
			Source:          model.SourceGOG,
			SourceID:        fmt.Sprintf("%d", p.ID),
			Title:           p.Title,
			CurrentPrice:    parsePrice(p.Price.Amount),
			OriginalPrice:   parsePrice(p.Price.BaseAmount),
			Currency:        "EUR",
			DiscountPercent: p.Price.DiscountPercentage,
			Kind:            kind,
			Platform:        model.PlatformPC,
			StoreURL:        "https://www.gog.com" + p.URL,
			ImageURL:        "https:" + p.Image + ".jpg",
		})
	}

	return Finalize(deals), nil
}
