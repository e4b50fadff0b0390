package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gameradar/dealwatch/internal/model"
)

// Nintendo fetches discounted eShop titles from the Nintendo of Europe
// search service.
type Nintendo struct {
	client  *Client
	region  string
	baseURL string
}

// NewNintendo creates the Nintendo adapter.
func NewNintendo(client *Client, region string) *Nintendo {
	if region == "" {
		region = "ES"
	}
	return &Nintendo{
		client:  client,
		region:  region,
		baseURL: "https://searching.nintendo-europe.com",
	}
}

// WithBaseURL overrides the search service URL (for testing).
func (n *Nintendo) WithBaseURL(u string) *Nintendo {
	n.baseURL = u
	return n
}

type nintendoResponse struct {
	Response struct {
		Docs []struct {
			Title             string   `json:"title"`
			NsuidTxt          []string `json:"nsuid_txt"`
			PriceRegularF     float64  `json:"price_regular_f"`
			PriceDiscountedF  float64  `json:"price_discounted_f"`
			PriceDiscountPctF float64  `json:"price_discount_percentage_f"`
			ImageURL          string   `json:"image_url"`
			URL               string   `json:"url"`
			SystemNamesTxt    []string `json:"system_names_txt"`
		} `json:"docs"`
	} `json:"response"`
}

// Fetch returns discounted eShop games.
func (n *Nintendo) Fetch(ctx context.Context) ([]model.Deal, error) {
	q := url.Values{}
	q.Set("q", "*")
	q.Set("fq", `type:GAME AND price_has_discount_b:true`)
	q.Set("rows", "100")
	q.Set("wt", "json")
	u := fmt.Sprintf("%s/%s/select?%s", n.baseURL, strings.ToLower(n.region), q.Encode())

	var parsed nintendoResponse
	if err := n.client.GetJSON(ctx, u, &parsed); err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, doc := range parsed.Response.Docs {
		if len(doc.NsuidTxt) == 0 || doc.PriceRegularF <= 0 {
			continue
		}
		deals = append(deals, model.Deal{
			Source:          model.SourceNintendo,
			SourceID:        doc.NsuidTxt[0],
			Title:           doc.Title,
			CurrentPrice:    doc.PriceDiscountedF,
			OriginalPrice:   doc.PriceRegularF,
			Currency:        "EUR",
			DiscountPercent: int(doc.PriceDiscountPctF),
			Kind:            model.KindDiscounted,
			Platform:        model.PlatformNintendo,
			ConsoleGen:      strings.Join(doc.SystemNamesTxt, ","),
			StoreURL:        "https://www.nintendo.es" + doc.URL,
			ImageURL:        "https:" + doc.ImageURL,
		})
	}

	return Finalize(deals), nil
}
