package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameradar/dealwatch/internal/model"
)

var trust = map[model.Source]float64{
	model.SourceEpic:       1.0,
	model.SourceGOG:        0.95,
	model.SourceSteam:      1.0,
	model.SourceCheapShark: 0.9,
	model.SourceGamerPower: 0.7,
}

func listing(src model.Source, title string, completeness int, review *model.ReviewSnapshot) model.Deal {
	d := model.Deal{
		Source:          src,
		SourceID:        string(src) + "-" + title,
		Title:           title,
		NormalizedTitle: title,
		SourceTrust:     trust[src],
		Review:          review,
	}
	if completeness > 0 {
		d.CurrentPrice = 4.99
	}
	if completeness > 1 {
		d.Description = "desc"
	}
	if completeness > 2 {
		d.ImageURL = "https://img.example/x.jpg"
	}
	if completeness > 3 {
		d.StoreURL = "https://store.example/x"
	}
	return d
}

func TestDeduplicateCardinality(t *testing.T) {
	deals := []model.Deal{
		listing(model.SourceEpic, "hades", 4, nil),
		listing(model.SourceCheapShark, "hades", 2, nil),
		listing(model.SourceGamerPower, "hades", 1, nil),
		listing(model.SourceGOG, "celeste", 3, nil),
	}
	out := Deduplicate(deals)
	require.Len(t, out, 2)

	titles := map[string]model.Source{}
	for _, d := range out {
		titles[d.NormalizedTitle] = d.Source
	}
	assert.Equal(t, model.SourceEpic, titles["hades"])
	assert.Equal(t, model.SourceGOG, titles["celeste"])
}

func TestDeduplicateOrderIndependent(t *testing.T) {
	a := listing(model.SourceCheapShark, "hades", 4, &model.ReviewSnapshot{Percent: 95, Count: 20000})
	b := listing(model.SourceEpic, "hades", 1, nil)

	first := Deduplicate([]model.Deal{a, b})
	second := Deduplicate([]model.Deal{b, a})
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Source, second[0].Source)
}

func TestDeduplicateRicherAggregatorBeatsBareFirstParty(t *testing.T) {
	// A complete aggregator listing with strong reviews outranks a
	// first-party listing that carries nothing but a title.
	aggregator := listing(model.SourceCheapShark, "hades", 4, &model.ReviewSnapshot{Percent: 95, Count: 20000})
	firstParty := listing(model.SourceEpic, "hades", 0, nil)

	out := Deduplicate([]model.Deal{firstParty, aggregator})
	require.Len(t, out, 1)
	assert.Equal(t, model.SourceCheapShark, out[0].Source)
}

func TestDeduplicateTrustBreaksTies(t *testing.T) {
	a := listing(model.SourceGOG, "hades", 2, nil)  // trust 0.95
	b := listing(model.SourceEpic, "hades", 2, nil) // trust 1.0
	out := Deduplicate([]model.Deal{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, model.SourceEpic, out[0].Source)
}

func TestDeduplicateMissingTitleFallsBackToID(t *testing.T) {
	a := model.Deal{Source: model.SourceEpic, SourceID: "1", Title: "???"}
	b := model.Deal{Source: model.SourceEpic, SourceID: "2", Title: "???"}
	assert.Len(t, Deduplicate([]model.Deal{a, b}), 2)
}

func TestAbsorbFullDiscounts(t *testing.T) {
	free := []model.Deal{listing(model.SourceEpic, "hades", 4, nil)}
	discounted := []model.Deal{
		{Source: model.SourceSteam, SourceID: "s1", NormalizedTitle: "celeste", Kind: model.KindDiscounted, DiscountPercent: 100, OriginalPrice: 19.99},
		{Source: model.SourceSteam, SourceID: "s2", NormalizedTitle: "hollow knight", Kind: model.KindDiscounted, DiscountPercent: 50, CurrentPrice: 7.49, OriginalPrice: 14.99},
	}

	frees, rest := AbsorbFullDiscounts(free, discounted)
	require.Len(t, frees, 2)
	require.Len(t, rest, 1)
	assert.Equal(t, model.KindFree, frees[1].Kind)
	assert.Equal(t, "hollow knight", rest[0].NormalizedTitle)
}
