package source

import (
	"strconv"
	"strings"

	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/internal/normalize"
)

// Upstream catalogs are polluted with non-game SKUs and platform add-ons;
// titles matching these substrings are discarded at the source.
var garbageSubstrings = []string{
	"dlc", "pack", "skin", "key", "giveaway", "demo", "bundle", "addon", "content",
}

// Keep reports whether a deal should survive at-source filtering. Giveaway
// feeds are allowed to say "giveaway" and bundle listings "bundle" in their
// titles; everything else that matches a garbage substring goes.
func Keep(d *model.Deal) bool {
	key := d.NormalizedTitle
	if key == "" {
		key = normalize.Title(d.Title)
	}
	if key == "" || key == "unknown" {
		return false
	}
	for _, g := range garbageSubstrings {
		if !strings.Contains(key, g) {
			continue
		}
		if g == "giveaway" && d.Kind == model.KindGiveaway {
			continue
		}
		if g == "bundle" && d.Kind == model.KindBundle {
			continue
		}
		return false
	}
	return true
}

// Finalize normalizes the title, derives the discount percent when the
// upstream did not provide it, and drops garbage rows. Shared by every
// adapter as its last step.
func Finalize(deals []model.Deal) []model.Deal {
	out := make([]model.Deal, 0, len(deals))
	for _, d := range deals {
		d.NormalizedTitle = normalize.Title(d.Title)
		if d.DiscountPercent <= 0 && d.OriginalPrice > 0 && d.CurrentPrice < d.OriginalPrice {
			d.DiscountPercent = int((d.OriginalPrice - d.CurrentPrice) / d.OriginalPrice * 100.0)
		}
		if d.DiscountPercent < 0 {
			d.DiscountPercent = 0
		}
		if d.DiscountPercent > 100 {
			d.DiscountPercent = 100
		}
		if d.Kind == model.KindFree || d.Kind == model.KindGiveaway {
			d.CurrentPrice = 0
			d.DiscountPercent = 100
		}
		if !Keep(&d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// parsePrice parses upstream price strings, tolerating a comma decimal
// separator and currency junk around the number.
func parsePrice(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	s = strings.Trim(s, "€$£ ")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
