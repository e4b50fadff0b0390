// Package suspect estimates how likely a deal is to be genuine. The
// validator never suppresses a deal; it attaches a trust score, a verdict
// and the flags that drove them, and the dispatcher decides how to present
// suspicious listings.
package suspect

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gameradar/dealwatch/internal/model"
)

// Check weights. History dominates because a real price record is the
// strongest signal available; the seller weight keeps giveaway feeds from
// ever reaching full trust on pattern checks alone.
const (
	weightHistory = 0.40
	weightPattern = 0.10
	weightRealism = 0.30
	weightSeller  = 0.20
)

// PriceHistory is the recorded price envelope for a title.
type PriceHistory struct {
	Low  float64
	Peak float64
}

// HistoryProvider resolves the price history for a title. A nil history
// with a nil error means the title is simply unknown upstream.
type HistoryProvider interface {
	History(ctx context.Context, title string) (*PriceHistory, error)
}

// Validator scores deals. A nil or failing history provider degrades the
// history check to discount-depth heuristics instead of failing the pass.
type Validator struct {
	history HistoryProvider
	memo    map[string]*PriceHistory
}

// New creates a Validator. provider may be nil.
func New(provider HistoryProvider) *Validator {
	return &Validator{
		history: provider,
		memo:    make(map[string]*PriceHistory),
	}
}

var buzzwords = []string{"ultimate", "deluxe", "premium", "gold", "platinum", "edition"}

// Validate scores one deal and returns its suspicion annotation.
func (v *Validator) Validate(ctx context.Context, d *model.Deal) *model.Suspicion {
	var flags []string
	add := func(f string) {
		for _, have := range flags {
			if have == f {
				return
			}
		}
		flags = append(flags, f)
	}

	history := v.historyCheck(ctx, d, add)
	pattern := patternCheck(d, add)
	realism := realismCheck(d)
	seller := d.SourceTrust

	trust := weightHistory*history + weightPattern*pattern + weightRealism*realism + weightSeller*seller
	verdict := verdictFor(trust)

	return &model.Suspicion{
		Trust:          trust,
		Verdict:        verdict,
		Flags:          flags,
		Recommendation: recommendationFor(verdict),
	}
}

// historyCheck compares the offer against the recorded price envelope.
// Without a usable history it falls back to judging discount depth alone.
func (v *Validator) historyCheck(ctx context.Context, d *model.Deal, add func(string)) float64 {
	h := v.lookupHistory(ctx, d.NormalizedTitle)
	if h == nil || h.Peak <= 0 {
		switch {
		case d.DiscountPercent >= 95:
			add("extreme_discount")
			return 0.3
		case d.DiscountPercent >= 80:
			add("high_discount")
			return 0.6
		default:
			return 0.9
		}
	}

	score := 0.9
	if d.OriginalPrice > h.Peak*1.5 {
		add("original_inflated")
		score -= 0.5
	}
	if h.Low > 0 && d.CurrentPrice > 0 && d.CurrentPrice < h.Low*0.8 {
		add("unusually_low")
		score -= 0.3
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (v *Validator) lookupHistory(ctx context.Context, title string) *PriceHistory {
	if v.history == nil || title == "" {
		return nil
	}
	if h, seen := v.memo[title]; seen {
		return h
	}

	h, err := v.history.History(ctx, title)
	if err != nil {
		zap.L().Debug("suspect: history lookup failed", zap.String("title", title), zap.Error(err))
		h = nil
	}
	v.memo[title] = h
	return h
}

// patternCheck looks for the shapes scam listings tend to share: fake
// bargains, psychological original prices, and keyword-stuffed titles.
func patternCheck(d *model.Deal, add func(string)) float64 {
	score := 1.0

	if d.DiscountPercent >= 95 {
		add("extreme_discount")
		score -= 0.3
	}
	if d.CurrentPrice > 0 && d.CurrentPrice < 0.99 {
		add("bargain_price")
		score -= 0.2
	}
	if isRoundOriginal(d.OriginalPrice) {
		add("round_original_price")
		score -= 0.1
	}
	if buzzwordCount(d.Title) >= 3 {
		add("excessive_buzzwords")
		score -= 0.1
	}
	if looksLikeDLC(d) && d.OriginalPrice > 50 {
		add("expensive_dlc")
		score -= 0.2
	}

	if score < 0 {
		score = 0
	}
	return score
}

// realismCheck judges whether the price drop is commercially plausible at
// all, independent of who listed it.
func realismCheck(d *model.Deal) float64 {
	score := 0.7
	if d.DiscountPercent >= 95 {
		score -= 0.4
	}
	if d.CurrentPrice > 0 && d.CurrentPrice < 1.0 && d.OriginalPrice >= 50 {
		score -= 0.2
	}
	if score < 0.1 {
		score = 0.1
	}
	return score
}

func isRoundOriginal(price float64) bool {
	for _, p := range []float64{99.99, 199.99, 299.99, 499.99} {
		if price == p {
			return true
		}
	}
	return false
}

// looksLikeDLC catches add-on content whether or not the source marked it:
// many feeds only reveal it in the title.
func looksLikeDLC(d *model.Deal) bool {
	return d.IsDLC || strings.Contains(strings.ToLower(d.Title), "dlc")
}

func buzzwordCount(title string) int {
	lower := strings.ToLower(title)
	n := 0
	for _, w := range buzzwords {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

func verdictFor(trust float64) model.Verdict {
	switch {
	case trust >= 0.8:
		return model.VerdictReal
	case trust >= 0.6:
		return model.VerdictProbablyReal
	case trust >= 0.4:
		return model.VerdictSuspicious
	default:
		return model.VerdictFake
	}
}

func recommendationFor(v model.Verdict) string {
	switch v {
	case model.VerdictReal:
		return "safe to post"
	case model.VerdictProbablyReal:
		return "post normally"
	case model.VerdictSuspicious:
		return "post with a warning"
	default:
		return "verify manually before trusting this listing"
	}
}
