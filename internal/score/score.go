// Package score turns review signals into a 0.0-5.0 quality score, a
// classification, and a star tier. The rules are deliberately conservative
// when sample sizes are small: raw positivity percent is unreliable below a
// few hundred reviews, so the bonuses are asymmetric.
package score

import "github.com/gameradar/dealwatch/internal/model"

// Star tiers rendered on outgoing notifications.
const (
	StarsThree   = "⭐⭐⭐"
	StarsTwo     = "⭐⭐"
	StarsOne     = "⭐"
	StarsWarning = "⚠️"
)

// Options controls optional scoring behavior.
type Options struct {
	// Advanced enables the additive fallback model for deals that carry a
	// review percent but no review count.
	Advanced bool
}

// Apply computes and stores the derived quality fields on the deal.
func Apply(d *model.Deal, opts Options) {
	d.QualityScore = Compute(d.Review, opts)
	d.Classification = Classify(d.QualityScore)
	d.StarRating = Stars(d.QualityScore)
}

// Compute returns the quality score for a review snapshot. A nil snapshot
// or one with no usable signal scores 0.
func Compute(r *model.ReviewSnapshot, opts Options) float64 {
	if r == nil || (r.Percent == 0 && r.CriticScore == 0) {
		return 0.0
	}

	percent := float64(r.Percent)

	switch {
	case r.Count >= 1000:
		score := percent / 100.0 * 5.0
		switch {
		case r.Count >= 10000:
			score += 0.3
		case r.Count >= 5000:
			score += 0.2
		}
		switch {
		case r.CriticScore >= 85:
			score += 0.2
		case r.CriticScore >= 75:
			score += 0.1
		}
		return clamp(score, 5.0)

	case r.Count >= 50 && r.Percent >= 70:
		score := 2.5 + (percent-70.0)/30.0*2.0
		switch {
		case r.Count >= 500:
			score += 0.4
		case r.Count >= 200:
			score += 0.3
		case r.Count >= 100:
			score += 0.2
		default:
			score += 0.1
		}
		return clamp(score, 4.8)

	case r.Count >= 50:
		// Enough volume but weak sentiment.
		return 2.0

	case r.Count >= 10:
		switch {
		case r.Percent >= 75:
			return 3.5
		case r.Percent >= 65:
			return 3.0
		default:
			return 2.5
		}

	case r.Count > 0:
		if r.Percent >= 70 {
			return 2.0
		}
		return 1.5
	}

	// No review count at all. Without the advanced model, percent alone is
	// treated like a tiny sample.
	if !opts.Advanced {
		if r.Percent >= 70 {
			return 2.0
		}
		return 1.5
	}
	return additiveFallback(r)
}

// additiveFallback scores deals that carry a percent but no count, as some
// aggregators report. Percent band plus critic bonus plus a nominal volume
// bonus, clamped at 5.0.
func additiveFallback(r *model.ReviewSnapshot) float64 {
	score := float64(r.Percent) / 100.0 * 4.0

	switch {
	case r.CriticScore >= 85:
		score += 0.6
	case r.CriticScore >= 75:
		score += 0.4
	case r.CriticScore >= 65:
		score += 0.2
	}

	if r.Count > 0 {
		score += 0.2
	}

	return clamp(score, 5.0)
}

// Classify buckets a score.
func Classify(score float64) model.Classification {
	switch {
	case score >= 3.5:
		return model.ClassPremium
	case score > 0:
		return model.ClassLow
	default:
		return model.ClassUnknown
	}
}

// Stars returns the tier marker for a score.
func Stars(score float64) string {
	switch {
	case score >= 4.5:
		return StarsThree
	case score >= 3.5:
		return StarsTwo
	case score >= 2.0:
		return StarsOne
	default:
		return StarsWarning
	}
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
