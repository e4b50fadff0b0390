// Package dedup collapses deals that describe the same game across sources
// down to the single best listing.
package dedup

import (
	"sort"

	"go.uber.org/zap"

	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/internal/score"
)

// quality ranks a listing for tie-breaking between duplicates. Source trust
// dominates, field completeness and review strength fill in the rest. Trust
// is read off the deal, stamped by the orchestrator from the descriptor
// table before pooling.
func quality(d *model.Deal) float64 {
	q := 0.40*d.SourceTrust + 0.30*d.Completeness()
	if d.HasReview() {
		q += 0.30 * (score.Compute(d.Review, score.Options{}) / 5.0)
	}
	return q
}

// better reports whether a should win over b. Ties fall back to higher
// source trust, then to lexicographic source name so the outcome is stable.
func better(a, b *model.Deal) bool {
	qa, qb := quality(a), quality(b)
	if qa != qb {
		return qa > qb
	}
	if a.SourceTrust != b.SourceTrust {
		return a.SourceTrust > b.SourceTrust
	}
	return a.Source < b.Source
}

// Deduplicate keeps one deal per normalized title. The survivor is the
// highest-quality listing; input order does not affect the outcome.
func Deduplicate(deals []model.Deal) []model.Deal {
	best := make(map[string]*model.Deal)
	order := make([]string, 0, len(deals))

	for i := range deals {
		d := &deals[i]
		key := d.NormalizedTitle
		if key == "" {
			key = d.ID()
		}
		cur, seen := best[key]
		if !seen {
			best[key] = d
			order = append(order, key)
			continue
		}
		if better(d, cur) {
			zap.L().Debug("dedup: replaced listing",
				zap.String("title", key),
				zap.String("kept", string(d.Source)),
				zap.String("dropped", string(cur.Source)))
			best[key] = d
		}
	}

	sort.Strings(order)
	out := make([]model.Deal, 0, len(best))
	for _, key := range order {
		out = append(out, *best[key])
	}
	return out
}

// AbsorbFullDiscounts moves 100%-off listings from the discount pool into
// the free pool, where they belong. Returns the grown free pool and the
// remaining discounts.
func AbsorbFullDiscounts(free, discounted []model.Deal) (frees, rest []model.Deal) {
	frees = free
	rest = discounted[:0]
	for _, d := range discounted {
		if d.DiscountPercent >= 100 || d.CurrentPrice == 0 {
			d.Kind = model.KindFree
			frees = append(frees, d)
			continue
		}
		rest = append(rest, d)
	}
	return frees, rest
}
