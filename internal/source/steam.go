package source

import (
	"context"
	"fmt"
	"time"

	"github.com/gameradar/dealwatch/internal/model"
)

const steamFeaturedURL = "https://store.steampowered.com/api/featuredcategories?cc=es&l=spanish"

// Steam fetches the featured specials from the Steam storefront. Specials at
// 100% off with an expiration are time-bounded free weekends, not giveaways.
type Steam struct {
	client  *Client
	baseURL string
}

// NewSteam creates the Steam adapter.
func NewSteam(client *Client) *Steam {
	return &Steam{client: client, baseURL: steamFeaturedURL}
}

// WithBaseURL overrides the featured categories URL (for testing).
func (s *Steam) WithBaseURL(u string) *Steam {
	s.baseURL = u
	return s
}

type steamFeaturedResponse struct {
	Specials struct {
		Items []steamItem `json:"items"`
	} `json:"specials"`
}

type steamItem struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Discounted         bool   `json:"discounted"`
	DiscountPercent    int    `json:"discount_percent"`
	OriginalPrice      int    `json:"original_price"` // cents
	FinalPrice         int    `json:"final_price"`    // cents
	Currency           string `json:"currency"`
	HeaderImage        string `json:"header_image"`
	DiscountExpiration int64  `json:"discount_expiration"`
}

// Fetch returns the current specials.
func (s *Steam) Fetch(ctx context.Context) ([]model.Deal, error) {
	var parsed steamFeaturedResponse
	if err := s.client.GetJSON(ctx, s.baseURL, &parsed); err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, it := range parsed.Specials.Items {
		if !it.Discounted {
			continue
		}

		kind := model.KindDiscounted
		if it.DiscountPercent >= 100 || it.FinalPrice == 0 {
			kind = model.KindFreeWeekend
		}

		d := model.Deal{
			Source:          model.SourceSteam,
			SourceID:        fmt.Sprintf("%d", it.ID),
			Title:           it.Name,
			CurrentPrice:    float64(it.FinalPrice) / 100.0,
			OriginalPrice:   float64(it.OriginalPrice) / 100.0,
			Currency:        nonEmpty(it.Currency, "EUR"),
			DiscountPercent: it.DiscountPercent,
			Kind:            kind,
			Platform:        steamPlatform(it.Name),
			StoreURL:        fmt.Sprintf("https://store.steampowered.com/app/%d/", it.ID),
			ImageURL:        it.HeaderImage,
		}
		if it.DiscountExpiration > 0 {
			end := time.Unix(it.DiscountExpiration, 0).UTC()
			d.EndsAt = &end
		}
		deals = append(deals, d)
	}

	return Finalize(deals), nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
