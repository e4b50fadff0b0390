// Package source holds the per-storefront adapters and the descriptor table
// that drives which adapters a pass runs.
package source

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gameradar/dealwatch/internal/config"
	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/pkg/cheapshark"
	"github.com/gameradar/dealwatch/pkg/platprices"
)

// Adapter fetches raw offers from one upstream and emits normalized deals.
// A returned error means the whole fetch failed; adapters never return a
// partial list as success.
type Adapter interface {
	Fetch(ctx context.Context) ([]model.Deal, error)
}

// Descriptor is the fixed per-source metadata the orchestrator keys on.
type Descriptor struct {
	Name        model.Source
	Trust       float64
	RequiresKey bool
	Platform    model.Platform
}

// Registered pairs a descriptor with its constructed adapter.
type Registered struct {
	Descriptor Descriptor
	Adapter    Adapter
}

// Trust weights are design constants: first-party storefronts are most
// reliable, multi-store aggregators next, giveaway feeds least.
var descriptors = []Descriptor{
	{Name: model.SourceEpic, Trust: 1.0, Platform: model.PlatformPC},
	{Name: model.SourceSteam, Trust: 1.0, Platform: model.PlatformPC},
	{Name: model.SourceGOG, Trust: 0.95, Platform: model.PlatformPC},
	{Name: model.SourcePlayStation, Trust: 1.0, Platform: model.PlatformPlayStation},
	{Name: model.SourceXbox, Trust: 1.0, Platform: model.PlatformXbox},
	{Name: model.SourceNintendo, Trust: 1.0, Platform: model.PlatformNintendo},
	{Name: model.SourceCheapShark, Trust: 0.9, Platform: model.PlatformPC},
	{Name: model.SourceGGDeals, Trust: 0.85, RequiresKey: true, Platform: model.PlatformPC},
	{Name: model.SourceGamerPower, Trust: 0.7, Platform: model.PlatformPC},
	{Name: model.SourceHumble, Trust: 0.9, Platform: model.PlatformPC},
}

// Descriptors returns a copy of the descriptor table, with trust weights
// optionally overridden from a YAML file ({source_name: weight}).
func Descriptors(trustTablePath string) ([]Descriptor, error) {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)

	if trustTablePath == "" {
		return out, nil
	}

	raw, err := os.ReadFile(trustTablePath)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read trust table %s", trustTablePath)
	}
	overrides := map[string]float64{}
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, eris.Wrap(err, "source: parse trust table")
	}
	for i := range out {
		if w, ok := overrides[string(out[i].Name)]; ok && w > 0 && w <= 1.0 {
			out[i].Trust = w
		}
	}
	return out, nil
}

// TrustFor returns the trust weight for a source, defaulting to the most
// skeptical weight in the table for unknown sources.
func TrustFor(descs []Descriptor, src model.Source) float64 {
	lowest := 1.0
	for _, d := range descs {
		if d.Name == src {
			return d.Trust
		}
		if d.Trust < lowest {
			lowest = d.Trust
		}
	}
	return lowest
}

// Build constructs the adapter set for a pass, skipping sources whose
// required credentials are absent.
func Build(cfg *config.Config, client *Client) ([]Registered, error) {
	descs, err := Descriptors(cfg.Sources.TrustTablePath)
	if err != nil {
		return nil, err
	}

	shark := cheapshark.NewClient(cheapshark.WithHTTPClient(client.HTTP()))

	var out []Registered
	for _, d := range descs {
		var a Adapter
		switch d.Name {
		case model.SourceEpic:
			a = NewEpic(client)
		case model.SourceSteam:
			a = NewSteam(client)
		case model.SourceGOG:
			a = NewGOG(client)
		case model.SourcePlayStation:
			var pp platprices.Client
			if cfg.APIs.PlatPricesKey != "" {
				pp = platprices.NewClient(cfg.APIs.PlatPricesKey, platprices.WithHTTPClient(client.HTTP()))
			}
			a = NewPlayStation(client, cfg.Regions.PlayStation, pp)
		case model.SourceXbox:
			a = NewXbox(client, cfg.Regions.XboxMarket)
		case model.SourceNintendo:
			a = NewNintendo(client, cfg.Regions.Nintendo)
		case model.SourceCheapShark:
			a = NewCheapShark(shark)
		case model.SourceGGDeals:
			if cfg.APIs.GGDealsKey == "" {
				zap.L().Debug("source: skipping ggdeals, no api key")
				continue
			}
			a = NewGGDeals(client, cfg.APIs.GGDealsKey)
		case model.SourceGamerPower:
			a = NewGamerPower(client)
		case model.SourceHumble:
			a = NewHumble(client)
		default:
			continue
		}
		out = append(out, Registered{Descriptor: d, Adapter: a})
	}
	return out, nil
}
