package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gameradar/dealwatch/internal/model"
)

// Xbox fetches the "Deals" computed list from the Microsoft Store reco
// endpoint, then resolves prices through the display catalog.
type Xbox struct {
	client     *Client
	market     string
	recoURL    string
	catalogURL string
}

// NewXbox creates the Xbox adapter.
func NewXbox(client *Client, market string) *Xbox {
	if market == "" {
		market = "ES"
	}
	return &Xbox{
		client:     client,
		market:     market,
		recoURL:    "https://reco-public.rec.mp.microsoft.com/channels/Reco/V8.0/Lists/Computed/Deal",
		catalogURL: "https://displaycatalog.mp.microsoft.com/v7.0/products",
	}
}

// WithURLs overrides both upstream URLs (for testing).
func (x *Xbox) WithURLs(reco, catalog string) *Xbox {
	x.recoURL = reco
	x.catalogURL = catalog
	return x
}

type xboxRecoResponse struct {
	Items []struct {
		ID string `json:"Id"`
	} `json:"Items"`
}

type xboxCatalogResponse struct {
	Products []struct {
		ProductID           string `json:"ProductId"`
		LocalizedProperties []struct {
			ProductTitle     string `json:"ProductTitle"`
			ShortDescription string `json:"ShortDescription"`
			Images           []struct {
				URI string `json:"Uri"`
			} `json:"Images"`
		} `json:"LocalizedProperties"`
		DisplaySkuAvailabilities []struct {
			Availabilities []struct {
				OrderManagementData struct {
					Price struct {
						ListPrice    float64 `json:"ListPrice"`
						MSRP         float64 `json:"MSRP"`
						CurrencyCode string  `json:"CurrencyCode"`
					} `json:"Price"`
				} `json:"OrderManagementData"`
			} `json:"Availabilities"`
		} `json:"DisplaySkuAvailabilities"`
	} `json:"Products"`
}

// Fetch returns the current Xbox deals for the configured market.
func (x *Xbox) Fetch(ctx context.Context) ([]model.Deal, error) {
	listURL := fmt.Sprintf("%s?Market=%s&ItemTypes=Game&DeviceFamily=Windows.Xbox&Count=50", x.recoURL, x.market)

	var reco xboxRecoResponse
	if err := x.client.GetJSON(ctx, listURL, &reco); err != nil {
		return nil, err
	}
	if len(reco.Items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(reco.Items))
	for _, it := range reco.Items {
		ids = append(ids, it.ID)
	}
	detailURL := fmt.Sprintf("%s?bigIds=%s&market=%s&languages=es-es",
		x.catalogURL, url.QueryEscape(strings.Join(ids, ",")), x.market)

	var catalog xboxCatalogResponse
	if err := x.client.GetJSON(ctx, detailURL, &catalog); err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, p := range catalog.Products {
		if len(p.LocalizedProperties) == 0 || len(p.DisplaySkuAvailabilities) == 0 {
			continue
		}
		props := p.LocalizedProperties[0]
		avails := p.DisplaySkuAvailabilities[0].Availabilities
		if len(avails) == 0 {
			continue
		}
		price := avails[0].OrderManagementData.Price
		if price.MSRP <= 0 || price.ListPrice >= price.MSRP {
			continue
		}

		d := model.Deal{
			Source:        model.SourceXbox,
			SourceID:      p.ProductID,
			Title:         props.ProductTitle,
			Description:   props.ShortDescription,
			CurrentPrice:  price.ListPrice,
			OriginalPrice: price.MSRP,
			Currency:      nonEmpty(price.CurrencyCode, "EUR"),
			Kind:          model.KindDiscounted,
			Platform:      model.PlatformXbox,
			ConsoleGen:    "Xbox Series X|S",
			StoreURL:      "https://www.xbox.com/games/store/p/" + p.ProductID,
		}
		if len(props.Images) > 0 {
			d.ImageURL = props.Images[0].URI
		}
		deals = append(deals, d)
	}

	return Finalize(deals), nil
}
