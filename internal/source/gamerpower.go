package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gameradar/dealwatch/internal/model"
)

const gamerPowerURL = "https://www.gamerpower.com/api/giveaways?type=game"

// GamerPower adapts the giveaway feed. Everything it emits is a giveaway;
// its review data always comes from enrichment.
type GamerPower struct {
	client  *Client
	baseURL string
}

// NewGamerPower creates the GamerPower adapter.
func NewGamerPower(client *Client) *GamerPower {
	return &GamerPower{client: client, baseURL: gamerPowerURL}
}

// WithBaseURL overrides the feed URL (for testing).
func (g *GamerPower) WithBaseURL(u string) *GamerPower {
	g.baseURL = u
	return g
}

type gamerPowerGiveaway struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Worth       string `json:"worth"` // "$29.99" or "N/A"
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	GiveawayURL string `json:"open_giveaway_url"`
	Platforms   string `json:"platforms"`
	EndDate     string `json:"end_date"` // "2026-09-12 23:59:00" or "N/A"
	Type        string `json:"type"`
}

// Fetch returns active game giveaways.
func (g *GamerPower) Fetch(ctx context.Context) ([]model.Deal, error) {
	var rows []gamerPowerGiveaway
	if err := g.client.GetJSON(ctx, g.baseURL, &rows); err != nil {
		return nil, err
	}

	var deals []model.Deal
	for _, r := range rows {
		if !strings.EqualFold(r.Type, "Game") {
			continue
		}

		d := model.Deal{
			Source:        model.SourceGamerPower,
			SourceID:      fmt.Sprintf("%d", r.ID),
			Title:         r.Title,
			OriginalPrice: parsePrice(r.Worth),
			Currency:      "USD",
			Kind:          model.KindGiveaway,
			Platform:      gamerPowerPlatform(r.Platforms),
			StoreURL:      r.GiveawayURL,
			ImageURL:      r.Thumbnail,
			Description:   r.Description,
		}
		if end, err := time.Parse("2006-01-02 15:04:05", r.EndDate); err == nil {
			endUTC := end.UTC()
			d.EndsAt = &endUTC
		}
		deals = append(deals, d)
	}

	return Finalize(deals), nil
}

func gamerPowerPlatform(platforms string) model.Platform {
	lower := strings.ToLower(platforms)
	switch {
	case strings.Contains(lower, "playstation") || strings.Contains(lower, "ps4") || strings.Contains(lower, "ps5"):
		return model.PlatformPlayStation
	case strings.Contains(lower, "xbox"):
		return model.PlatformXbox
	case strings.Contains(lower, "switch"):
		return model.PlatformNintendo
	case strings.Contains(lower, "vr") || strings.Contains(lower, "oculus"):
		return model.PlatformVR
	case strings.Contains(lower, "android") || strings.Contains(lower, "ios"):
		return model.PlatformMobile
	case strings.Contains(lower, "pc") || strings.Contains(lower, "steam") || strings.Contains(lower, "epic"):
		return model.PlatformPC
	default:
		return model.PlatformUnknown
	}
}
