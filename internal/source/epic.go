package source

import (
	"context"
	"fmt"
	"time"

	"github.com/gameradar/dealwatch/internal/model"
)

const epicPromotionsURL = "https://store-site-backend-static.ak.epicgames.com/freeGamesPromotions?locale=es-ES&country=ES"

// Epic fetches the weekly free game promotions from the Epic Games Store.
type Epic struct {
	client  *Client
	baseURL string
}

// NewEpic creates the Epic adapter.
func NewEpic(client *Client) *Epic {
	return &Epic{client: client, baseURL: epicPromotionsURL}
}

// WithBaseURL overrides the promotions URL (for testing).
func (e *Epic) WithBaseURL(u string) *Epic {
	e.baseURL = u
	return e
}

type epicResponse struct {
	Data struct {
		Catalog struct {
			SearchStore struct {
				Elements []epicElement `json:"elements"`
			} `json:"searchStore"`
		} `json:"Catalog"`
	} `json:"data"`
}

type epicElement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ProductSlug string `json:"productSlug"`
	OfferType   string `json:"offerType"`
	KeyImages   []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"keyImages"`
	Price struct {
		TotalPrice struct {
			DiscountPrice int    `json:"discountPrice"` // cents
			OriginalPrice int    `json:"originalPrice"` // cents
			CurrencyCode  string `json:"currencyCode"`
		} `json:"totalPrice"`
	} `json:"price"`
	Promotions struct {
		PromotionalOffers []struct {
			PromotionalOffers []struct {
				StartDate time.Time `json:"startDate"`
				EndDate   time.Time `json:"endDate"`
				Setting   struct {
					DiscountPercentage int `json:"discountPercentage"`
				} `json:"discountSetting"`
			} `json:"promotionalOffers"`
		} `json:"promotionalOffers"`
	} `json:"promotions"`
}

// Fetch returns the currently free promotional titles. Upcoming promotions
// (listed but not yet started) are skipped.
func (e *Epic) Fetch(ctx context.Context) ([]model.Deal, error) {
	var parsed epicResponse
	if err := e.client.GetJSON(ctx, e.baseURL, &parsed); err != nil {
		return nil, err
	}

	now := time.Now()
	var deals []model.Deal
	for _, el := range parsed.Data.Catalog.SearchStore.Elements {
		offer, ok := activeEpicOffer(el, now)
		if !ok {
			continue
		}

		currency := el.Price.TotalPrice.CurrencyCode
		if currency == "" {
			currency = "EUR"
		}

		d := model.Deal{
			Source:        model.SourceEpic,
			SourceID:      el.ID,
			Title:         el.Title,
			Description:   el.Description,
			CurrentPrice:  float64(el.Price.TotalPrice.DiscountPrice) / 100.0,
			OriginalPrice: float64(el.Price.TotalPrice.OriginalPrice) / 100.0,
			Currency:      currency,
			Kind:          model.KindFree,
			Platform:      model.PlatformPC,
			StoreURL:      fmt.Sprintf("https://store.epicgames.com/p/%s", el.ProductSlug),
			IsDLC:         el.OfferType == "ADD_ON",
		}
		start := offer.StartDate
		end := offer.EndDate
		d.StartsAt = &start
		d.EndsAt = &end
		for _, img := range el.KeyImages {
			if img.Type == "OfferImageWide" || img.Type == "Thumbnail" {
				d.ImageURL = img.URL
				break
			}
		}
		deals = append(deals, d)
	}

	return Finalize(deals), nil
}

type epicOffer struct {
	StartDate time.Time
	EndDate   time.Time
}

func activeEpicOffer(el epicElement, now time.Time) (epicOffer, bool) {
	for _, block := range el.Promotions.PromotionalOffers {
		for _, o := range block.PromotionalOffers {
			if o.Setting.DiscountPercentage != 0 {
				continue // 0 means free on this endpoint
			}
			if now.Before(o.StartDate) || now.After(o.EndDate) {
				continue
			}
			return epicOffer{StartDate: o.StartDate, EndDate: o.EndDate}, true
		}
	}
	return epicOffer{}, false
}
