package source

import (
	"context"
	"time"

	"github.com/gameradar/dealwatch/internal/model"
)

const humbleBundlesURL = "https://www.humblebundle.com/api/v1/bundles?platform=games"

// Humble adapts the Humble Bundle catalog. Bundles have no per-title price,
// so the tier minimum rides in CurrentPrice.
type Humble struct {
	client  *Client
	baseURL string
}

// NewHumble creates the Humble adapter.
func NewHumble(client *Client) *Humble {
	return &Humble{client: client, baseURL: humbleBundlesURL}
}

// WithBaseURL overrides the bundles URL (for testing).
func (h *Humble) WithBaseURL(u string) *Humble {
	h.baseURL = u
	return h
}

type humbleResponse struct {
	Bundles []struct {
		MachineName   string    `json:"machine_name"`
		TileName      string    `json:"tile_name"`
		ShortBlurb    string    `json:"short_blurb"`
		ProductURL    string    `json:"product_url"`
		TileImage     string    `json:"tile_image"`
		MinPriceCents int       `json:"min_price_cents"`
		MSRPCents     int       `json:"msrp_cents"`
		EndsAt        time.Time `json:"ends_at"`
	} `json:"bundles"`
}

// Fetch returns the active game bundles.
func (h *Humble) Fetch(ctx context.Context) ([]model.Deal, error) {
	var parsed humbleResponse
	if err := h.client.GetJSON(ctx, h.baseURL, &parsed); err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, b := range parsed.Bundles {
		d := model.Deal{
			Source:        model.SourceHumble,
			SourceID:      b.MachineName,
			Title:         b.TileName,
			Description:   b.ShortBlurb,
			CurrentPrice:  float64(b.MinPriceCents) / 100.0,
			OriginalPrice: float64(b.MSRPCents) / 100.0,
			Currency:      "EUR",
			Kind:          model.KindBundle,
			Platform:      model.PlatformPC,
			StoreURL:      "https://www.humblebundle.com" + b.ProductURL,
			ImageURL:      b.TileImage,
		}
		if !b.EndsAt.IsZero() {
			end := b.EndsAt.UTC()
			d.EndsAt = &end
		}
		deals = append(deals, d)
	}

	return Finalize(deals), nil
}
