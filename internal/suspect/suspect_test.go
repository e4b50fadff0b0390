package suspect

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameradar/dealwatch/internal/model"
)

type fakeHistory struct {
	byTitle map[string]*PriceHistory
	err     error
	calls   int
}

func (f *fakeHistory) History(_ context.Context, title string) (*PriceHistory, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byTitle[title], nil
}

func TestValidateLegitimateDeal(t *testing.T) {
	v := New(nil)
	d := &model.Deal{
		Source: model.SourceSteam, Title: "Hades", NormalizedTitle: "hades",
		CurrentPrice: 9.99, OriginalPrice: 19.99, DiscountPercent: 50,
		SourceTrust: 1.0,
	}

	s := v.Validate(context.Background(), d)
	require.NotNil(t, s)
	assert.InDelta(t, 0.87, s.Trust, 1e-9)
	assert.Equal(t, model.VerdictReal, s.Verdict)
	assert.Empty(t, s.Flags)
}

func TestValidateScamShapedDeal(t *testing.T) {
	v := New(nil)
	d := &model.Deal{
		Source: model.SourceGamerPower, Title: "MEGA ULTIMATE DELUXE GOLD EDITION",
		NormalizedTitle: "mega ultimate deluxe gold edition",
		CurrentPrice:    0.99, OriginalPrice: 499.99, DiscountPercent: 99,
		SourceTrust: 0.7,
	}

	s := v.Validate(context.Background(), d)
	assert.Less(t, s.Trust, 0.4)
	assert.Equal(t, model.VerdictFake, s.Verdict)
	assert.Contains(t, s.Flags, "extreme_discount")
	assert.Contains(t, s.Flags, "round_original_price")
	assert.Contains(t, s.Flags, "excessive_buzzwords")
	assert.Contains(t, s.Recommendation, "verify")
}

func TestValidateInflatedOriginal(t *testing.T) {
	h := &fakeHistory{byTitle: map[string]*PriceHistory{
		"indie gem": {Low: 4.99, Peak: 19.99},
	}}
	v := New(h)
	d := &model.Deal{
		Source: model.SourceGGDeals, Title: "Indie Gem", NormalizedTitle: "indie gem",
		CurrentPrice: 5.99, OriginalPrice: 59.99, DiscountPercent: 90,
		SourceTrust: 0.85,
	}

	s := v.Validate(context.Background(), d)
	assert.Contains(t, s.Flags, "original_inflated")
	// History 0.4, pattern 1.0, realism 0.7, seller 0.85.
	assert.InDelta(t, 0.4*0.4+0.1*1.0+0.3*0.7+0.2*0.85, s.Trust, 1e-9)
}

func TestValidateUnusuallyLowPrice(t *testing.T) {
	h := &fakeHistory{byTitle: map[string]*PriceHistory{
		"hades": {Low: 9.99, Peak: 24.99},
	}}
	v := New(h)
	d := &model.Deal{
		Source: model.SourceCheapShark, Title: "Hades", NormalizedTitle: "hades",
		CurrentPrice: 2.49, OriginalPrice: 24.99, DiscountPercent: 90,
		SourceTrust: 0.9,
	}

	s := v.Validate(context.Background(), d)
	assert.Contains(t, s.Flags, "unusually_low")
}

func TestHistoryFailureDegradesToHeuristics(t *testing.T) {
	v := New(&fakeHistory{err: eris.New("boom")})
	d := &model.Deal{
		Source: model.SourceSteam, Title: "Celeste", NormalizedTitle: "celeste",
		CurrentPrice: 4.99, OriginalPrice: 19.99, DiscountPercent: 75,
		SourceTrust: 1.0,
	}

	s := v.Validate(context.Background(), d)
	require.NotNil(t, s)
	assert.GreaterOrEqual(t, s.Trust, 0.8)
}

func TestHistoryMemoizedPerPass(t *testing.T) {
	h := &fakeHistory{byTitle: map[string]*PriceHistory{}}
	v := New(h)
	d := &model.Deal{
		Source: model.SourceSteam, Title: "Celeste", NormalizedTitle: "celeste",
		CurrentPrice: 4.99, OriginalPrice: 19.99, DiscountPercent: 75,
		SourceTrust: 1.0,
	}

	ctx := context.Background()
	v.Validate(ctx, d)
	v.Validate(ctx, d)
	assert.Equal(t, 1, h.calls)
}

func TestVerdictBands(t *testing.T) {
	assert.Equal(t, model.VerdictReal, verdictFor(0.8))
	assert.Equal(t, model.VerdictProbablyReal, verdictFor(0.79))
	assert.Equal(t, model.VerdictProbablyReal, verdictFor(0.6))
	assert.Equal(t, model.VerdictSuspicious, verdictFor(0.59))
	assert.Equal(t, model.VerdictSuspicious, verdictFor(0.4))
	assert.Equal(t, model.VerdictFake, verdictFor(0.39))
}

func TestExpensiveDLCFlag(t *testing.T) {
	v := New(nil)
	d := &model.Deal{
		Source: model.SourceXbox, Title: "Season Pass", NormalizedTitle: "season pass",
		CurrentPrice: 29.99, OriginalPrice: 59.99, DiscountPercent: 50,
		IsDLC: true, SourceTrust: 1.0,
	}
	s := v.Validate(context.Background(), d)
	assert.Contains(t, s.Flags, "expensive_dlc")

	// Some feeds never set the flag; the title gives it away instead.
	titled := &model.Deal{
		Source: model.SourceXbox, Title: "Shadowlands DLC Pack", NormalizedTitle: "shadowlands dlc pack",
		CurrentPrice: 39.99, OriginalPrice: 79.99, DiscountPercent: 50,
		SourceTrust: 1.0,
	}
	s = v.Validate(context.Background(), titled)
	assert.Contains(t, s.Flags, "expensive_dlc")
}
