package source

import (
	"context"
	"strconv"

	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/pkg/cheapshark"
)

// CheapShark adapts the multi-store aggregator feed. Review signals ride
// along on the deal rows, so most CheapShark deals skip enrichment.
type CheapShark struct {
	api cheapshark.Client
}

// NewCheapShark creates the CheapShark adapter.
func NewCheapShark(api cheapshark.Client) *CheapShark {
	return &CheapShark{api: api}
}

// Fetch returns the current aggregated deals.
func (c *CheapShark) Fetch(ctx context.Context) ([]model.Deal, error) {
	rows, err := c.api.Deals(ctx, cheapshark.DealsOptions{UpperPrice: 30, PageSize: 60})
	if err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, r := range rows {
		sale := parsePrice(r.SalePrice)
		normal := parsePrice(r.NormalPrice)
		savings, _ := strconv.ParseFloat(r.Savings, 64)

		kind := model.KindDiscounted
		if sale == 0 {
			kind = model.KindFree
		}

		d := model.Deal{
			Source:          model.SourceCheapShark,
			SourceID:        r.DealID,
			Title:           r.Title,
			CurrentPrice:    sale,
			OriginalPrice:   normal,
			Currency:        "USD",
			DiscountPercent: int(savings),
			Kind:            kind,
			Platform:        model.PlatformPC,
			StoreURL:        "https://www.cheapshark.com/redirect?dealID=" + r.DealID,
			ImageURL:        r.Thumb,
		}

		percent, _ := strconv.Atoi(r.SteamRatingPercent)
		count, _ := strconv.Atoi(r.SteamRatingCount)
		critic, _ := strconv.Atoi(r.MetacriticScore)
		if percent > 0 || critic > 0 {
			d.Review = &model.ReviewSnapshot{
				Percent:     percent,
				Count:       count,
				CriticScore: critic,
			}
		}

		deals = append(deals, d)
	}

	return Finalize(deals), nil
}
