package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameradar/dealwatch/internal/cache"
	"github.com/gameradar/dealwatch/internal/config"
	"github.com/gameradar/dealwatch/internal/enrich"
	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/internal/source"
	"github.com/gameradar/dealwatch/internal/suspect"
)

type fakeAdapter struct {
	deals []model.Deal
	err   error
}

func (f fakeAdapter) Fetch(context.Context) ([]model.Deal, error) {
	return f.deals, f.err
}

func registered(name model.Source, trust float64, a source.Adapter) source.Registered {
	return source.Registered{
		Descriptor: source.Descriptor{Name: name, Trust: trust, Platform: model.PlatformPC},
		Adapter:    a,
	}
}

// harness bundles the fakes one pass needs: a counting webhook sink, a file
// cache, and an enricher whose upstreams always miss.
type harness struct {
	cfg      *config.Config
	store    cache.Store
	enricher *enrich.Enricher
	webhooks *atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	var calls atomic.Int32
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(sink.Close)

	miss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	t.Cleanup(miss.Close)

	cfg := &config.Config{}
	cfg.Deals = config.DealsConfig{MinDiscount: 30, MaxDiscount: 99, MinScore: 3.6, MaxPrice: 10}
	cfg.Suspect.TrustThreshold = 0.6
	cfg.Sources.FetchTimeoutSecs = 5
	cfg.Sources.MaxConcurrent = 4
	cfg.Features.EnableParallelFetch = true
	cfg.Enrich.LookupSpacingMillis = 1
	cfg.Webhooks.Premium = sink.URL
	cfg.Webhooks.Low = sink.URL
	cfg.Webhooks.Discount = sink.URL
	cfg.Webhooks.FreeWeekend = sink.URL

	store, err := cache.OpenFile(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	return &harness{
		cfg:      cfg,
		store:    store,
		enricher: enrich.New(source.NewClient(source.ClientOptions{}), time.Millisecond).WithURLs(miss.URL, miss.URL),
		webhooks: &calls,
	}
}

func (h *harness) pass(t *testing.T, adapters []source.Registered, extra ...Option) *Orchestrator {
	t.Helper()
	opts := append([]Option{
		WithAdapters(adapters),
		WithCache(h.store),
		WithEnricher(h.enricher),
	}, extra...)
	o, err := New(context.Background(), h.cfg, opts...)
	require.NoError(t, err)
	return o
}

func premiumFree(src model.Source, id, title string) model.Deal {
	return model.Deal{
		Source: src, SourceID: id, Title: title, NormalizedTitle: title,
		Kind: model.KindFree, Platform: model.PlatformPC,
		OriginalPrice: 19.99, DiscountPercent: 100,
		Review:   &model.ReviewSnapshot{Percent: 92, Count: 12000},
		StoreURL: "https://store.example/" + id,
	}
}

func TestRunDispatchesAndSuppressesOnRerun(t *testing.T) {
	h := newHarness(t)
	adapters := []source.Registered{
		registered(model.SourceEpic, 1.0, fakeAdapter{deals: []model.Deal{premiumFree(model.SourceEpic, "1", "hades")}}),
	}

	report, err := h.pass(t, adapters).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched)
	assert.Zero(t, report.Suppressed)
	assert.Equal(t, 1, report.Sources["epic"].Fetched)

	// Same offer next pass: remembered, not re-announced.
	report, err = h.pass(t, adapters).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Dispatched)
	assert.Equal(t, 1, report.Suppressed)
}

func TestRunIsolatesFailingSource(t *testing.T) {
	h := newHarness(t)
	adapters := []source.Registered{
		registered(model.SourceEpic, 1.0, fakeAdapter{deals: []model.Deal{premiumFree(model.SourceEpic, "1", "hades")}}),
		registered(model.SourceGOG, 0.95, fakeAdapter{err: eris.New("upstream down")}),
	}

	report, err := h.pass(t, adapters).Run(context.Background())
	require.NoError(t, err, "one broken source must not fail the pass")
	assert.Equal(t, 1, report.Dispatched)
	assert.Equal(t, "upstream down", report.Sources["gog"].Error)
	assert.Equal(t, 1, report.Sources["epic"].Fetched)
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	h := newHarness(t)
	adapters := []source.Registered{
		registered(model.SourceEpic, 1.0, fakeAdapter{deals: []model.Deal{premiumFree(model.SourceEpic, "1", "hades")}}),
		registered(model.SourceGamerPower, 0.7, fakeAdapter{deals: []model.Deal{premiumFree(model.SourceGamerPower, "77", "hades")}}),
	}

	report, err := h.pass(t, adapters).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched, "the same title from two sources is announced once")
	assert.Equal(t, 2, report.Considered)
}

func TestRunAbsorbsFullDiscountIntoFreePool(t *testing.T) {
	h := newHarness(t)
	full := model.Deal{
		Source: model.SourceSteam, SourceID: "99", Title: "celeste", NormalizedTitle: "celeste",
		Kind: model.KindDiscounted, Platform: model.PlatformPC,
		OriginalPrice: 19.99, CurrentPrice: 0, DiscountPercent: 100,
		Review: &model.ReviewSnapshot{Percent: 97, Count: 40000},
	}
	adapters := []source.Registered{
		registered(model.SourceSteam, 1.0, fakeAdapter{deals: []model.Deal{full}}),
	}

	report, err := h.pass(t, adapters).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched, "a 100%-off listing announces as free, not as a discount")
}

func TestRunDiscountSelection(t *testing.T) {
	h := newHarness(t)
	good := model.Deal{
		Source: model.SourceSteam, SourceID: "1", Title: "celeste", NormalizedTitle: "celeste",
		Kind: model.KindDiscounted, Platform: model.PlatformPC,
		CurrentPrice: 4.99, OriginalPrice: 19.99, DiscountPercent: 75,
		Review: &model.ReviewSnapshot{Percent: 97, Count: 40000},
	}
	tooExpensive := good
	tooExpensive.SourceID, tooExpensive.NormalizedTitle = "2", "expensive game"
	tooExpensive.CurrentPrice = 29.99

	shallow := good
	shallow.SourceID, shallow.NormalizedTitle = "3", "shallow discount"
	shallow.DiscountPercent = 10

	unrated := good
	unrated.SourceID, unrated.NormalizedTitle = "4", "unrated game"
	unrated.Review = nil
	unrated.Platform = model.PlatformXbox // enrichment misses, so it stays unrated

	adapters := []source.Registered{
		registered(model.SourceSteam, 1.0, fakeAdapter{deals: []model.Deal{good, tooExpensive, shallow, unrated}}),
	}

	report, err := h.pass(t, adapters).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched, "only the deep, cheap, well-reviewed discount goes out")
	assert.Equal(t, 4, report.Considered)
}

func TestRunWeekendWindow(t *testing.T) {
	h := newHarness(t)
	t0 := time.Date(2026, 3, 5, 18, 0, 0, 0, time.UTC)
	weekend := model.Deal{
		Source: model.SourceSteam, SourceID: "730", Title: "cs2", NormalizedTitle: "cs2",
		Kind: model.KindFreeWeekend, Platform: model.PlatformPC,
		Review: &model.ReviewSnapshot{Percent: 88, Count: 900000},
	}
	adapters := []source.Registered{
		registered(model.SourceSteam, 1.0, fakeAdapter{deals: []model.Deal{weekend}}),
	}

	clockAt := func(ts time.Time) Option { return WithClock(func() time.Time { return ts }) }

	report, err := h.pass(t, adapters, clockAt(t0)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched)

	// 24h later the promotion is still running: suppressed.
	report, err = h.pass(t, adapters, clockAt(t0.Add(24*time.Hour))).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Dispatched)
	assert.Equal(t, 1, report.Suppressed)

	// After the window closes the same promotion may be announced again.
	report, err = h.pass(t, adapters, clockAt(t0.Add(120*time.Hour))).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched)
}

func TestRunFlagsSuspiciousButStillDispatches(t *testing.T) {
	h := newHarness(t)
	h.cfg.Features.EnableAIValidation = true

	scam := model.Deal{
		Source: model.SourceGamerPower, SourceID: "666",
		Title:           "MEGA ULTIMATE DELUXE GOLD EDITION",
		NormalizedTitle: "mega ultimate deluxe gold edition",
		Kind:            model.KindFree, Platform: model.PlatformXbox,
		OriginalPrice: 499.99, DiscountPercent: 100,
	}
	adapters := []source.Registered{
		registered(model.SourceGamerPower, 0.7, fakeAdapter{deals: []model.Deal{scam}}),
	}

	report, err := h.pass(t, adapters, WithValidator(suspect.New(nil))).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Suspicious)
	assert.Equal(t, 1, report.Dispatched, "suspicion annotates, it never suppresses")
}

func TestRunWithoutValidationMarksTrusted(t *testing.T) {
	h := newHarness(t)
	adapters := []source.Registered{
		registered(model.SourceEpic, 1.0, fakeAdapter{deals: []model.Deal{premiumFree(model.SourceEpic, "1", "hades")}}),
	}

	report, err := h.pass(t, adapters).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Suspicious)
}

func TestNewClientCarriesHostRateLimits(t *testing.T) {
	h := newHarness(t)
	o := h.pass(t, nil)

	for _, host := range []string{"store.steampowered.com", "www.cheapshark.com", "api.gg.deals"} {
		assert.True(t, o.client.Throttled(host), "host %s must be rate limited", host)
	}
	assert.False(t, o.client.Throttled("unthrottled.example"))
}

func TestRunSequentialFetchWhenParallelDisabled(t *testing.T) {
	h := newHarness(t)
	h.cfg.Features.EnableParallelFetch = false
	adapters := []source.Registered{
		registered(model.SourceEpic, 1.0, fakeAdapter{deals: []model.Deal{premiumFree(model.SourceEpic, "1", "hades")}}),
		registered(model.SourceGOG, 0.95, fakeAdapter{deals: []model.Deal{premiumFree(model.SourceGOG, "2", "celeste")}}),
	}

	report, err := h.pass(t, adapters).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Dispatched)
}
