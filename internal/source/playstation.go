package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/pkg/platprices"
)

// PlayStation fetches current PSN discounts. The primary path is the store's
// own container API, which rate-limits and geo-blocks aggressively; when it
// fails and a PlatPrices key is configured, the adapter falls back to
// PlatPrices transparently.
type PlayStation struct {
	client   *Client
	region   string
	fallback platprices.Client
	baseURL  string
}

// NewPlayStation creates the PlayStation adapter. fallback may be nil.
func NewPlayStation(client *Client, region string, fallback platprices.Client) *PlayStation {
	if region == "" {
		region = "es-es"
	}
	return &PlayStation{
		client:   client,
		region:   region,
		fallback: fallback,
		baseURL:  "https://store.playstation.com/store/api/chihiro/00_09_000/container",
	}
}

// WithBaseURL overrides the store container URL (for testing).
func (p *PlayStation) WithBaseURL(u string) *PlayStation {
	p.baseURL = u
	return p
}

type psnContainerResponse struct {
	Included []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name             string   `json:"name"`
			ThumbnailURLBase string   `json:"thumbnail-url-base"`
			Platforms        []string `json:"platforms"`
			Skus             []struct {
				Prices struct {
					NonPlusUser struct {
						ActualPrice struct {
							Value int `json:"value"` // cents
						} `json:"actual-price"`
						StrikethroughPrice struct {
							Value int `json:"value"` // cents
						} `json:"strikethrough-price"`
						DiscountPercentage int `json:"discount-percentage"`
						Availability       struct {
							EndDate *time.Time `json:"end-date"`
						} `json:"availability"`
					} `json:"non-plus-user"`
					PlusUser struct {
						DiscountPercentage int `json:"discount-percentage"`
					} `json:"plus-user"`
				} `json:"prices"`
			} `json:"skus"`
		} `json:"attributes"`
	} `json:"included"`
}

// Fetch returns current PSN deals, preferring the first path that yields
// valid data.
func (p *PlayStation) Fetch(ctx context.Context) ([]model.Deal, error) {
	deals, err := p.fetchStore(ctx)
	if err == nil && len(deals) > 0 {
		return deals, nil
	}
	if p.fallback == nil {
		return deals, err
	}
	if err != nil {
		zap.L().Warn("source: playstation store fetch failed, using platprices fallback", zap.Error(err))
	}
	return p.fetchPlatPrices(ctx)
}

func (p *PlayStation) fetchStore(ctx context.Context) ([]model.Deal, error) {
	locale := strings.SplitN(p.region, "-", 2)
	country := "ES"
	lang := "es"
	if len(locale) == 2 {
		lang, country = locale[0], strings.ToUpper(locale[1])
	}
	u := fmt.Sprintf("%s/%s/%s/19/STORE-MSF75508-PRICEDROPSCHI", p.baseURL, country, lang)

	var parsed psnContainerResponse
	if err := p.client.GetJSON(ctx, u, &parsed); err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, item := range parsed.Included {
		if len(item.Attributes.Skus) == 0 {
			continue
		}
		prices := item.Attributes.Skus[0].Prices.NonPlusUser
		if prices.DiscountPercentage <= 0 {
			continue
		}

		d := model.Deal{
			Source:                  model.SourcePlayStation,
			SourceID:                item.ID,
			Title:                   item.Attributes.Name,
			CurrentPrice:            float64(prices.ActualPrice.Value) / 100.0,
			OriginalPrice:           float64(prices.StrikethroughPrice.Value) / 100.0,
			Currency:                "EUR",
			DiscountPercent:         prices.DiscountPercentage,
			Kind:                    model.KindDiscounted,
			Platform:                model.PlatformPlayStation,
			ConsoleGen:              strings.Join(item.Attributes.Platforms, ","),
			StoreURL:                "https://store.playstation.com/" + p.region + "/product/" + item.ID,
			ImageURL:                item.Attributes.ThumbnailURLBase,
			IsSubscriptionInclusion: item.Attributes.Skus[0].Prices.PlusUser.DiscountPercentage >= 100,
		}
		if end := prices.Availability.EndDate; end != nil {
			d.EndsAt = end
		}
		deals = append(deals, d)
	}

	return Finalize(deals), nil
}

func (p *PlayStation) fetchPlatPrices(ctx context.Context) ([]model.Deal, error) {
	region := strings.ToUpper(strings.TrimPrefix(p.region, "es-"))
	offers, err := p.fallback.Discounted(ctx, region)
	if err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, o := range offers {
		if o.DiscountPct <= 0 {
			continue
		}
		d := model.Deal{
			Source:          model.SourcePlayStation,
			SourceID:        fmt.Sprintf("pp-%d", o.PPID),
			Title:           o.Name,
			CurrentPrice:    float64(o.SalePrice) / 100.0,
			OriginalPrice:   float64(o.BasePrice) / 100.0,
			Currency:        "EUR",
			DiscountPercent: o.DiscountPct,
			Kind:            model.KindDiscounted,
			Platform:        model.PlatformPlayStation,
			ConsoleGen:      o.Platforms,
			StoreURL:        o.ProductURL,
			ImageURL:        o.ImageURL,
		}
		if o.SaleEndsUnix > 0 {
			end := time.Unix(o.SaleEndsUnix, 0).UTC()
			d.EndsAt = &end
		}
		deals = append(deals, d)
	}

	return Finalize(deals), nil
}
