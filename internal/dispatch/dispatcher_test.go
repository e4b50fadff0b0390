package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameradar/dealwatch/internal/config"
	"github.com/gameradar/dealwatch/internal/model"
)

func webhookServer(t *testing.T, status int, calls *atomic.Int32, last *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err == nil && last != nil {
			last.Store(msg.Content)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func freeDeal() *model.Deal {
	return &model.Deal{
		Source: model.SourceEpic, SourceID: "offer-1",
		Title: "Hades", Kind: model.KindFree,
		OriginalPrice: 24.99, Currency: "EUR",
		StoreURL: "https://store.example/hades", StarRating: "⭐⭐⭐",
	}
}

func TestAnnounceDeliversAndMirrors(t *testing.T) {
	var premiumCalls, allCalls atomic.Int32
	var lastPremium atomic.Value
	premium := webhookServer(t, http.StatusNoContent, &premiumCalls, &lastPremium)
	all := webhookServer(t, http.StatusNoContent, &allCalls, nil)

	cfg := &config.Config{}
	cfg.Webhooks.Premium = premium.URL
	cfg.Webhooks.All = all.URL
	cfg.Roles.Premium = "<@&12345>"

	d := New(cfg)
	sent, err := d.Announce(context.Background(), ChannelPremium, freeDeal())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, int32(1), premiumCalls.Load())
	assert.Equal(t, int32(1), allCalls.Load())

	content := lastPremium.Load().(string)
	assert.Contains(t, content, "<@&12345>")
	assert.Contains(t, content, "**Hades** is FREE")
	assert.Contains(t, content, "https://store.example/hades")
}

func TestSendSkipsUnconfiguredChannel(t *testing.T) {
	d := New(&config.Config{})
	sent, err := d.Send(context.Background(), ChannelPremium, &Message{Content: "x"})
	require.NoError(t, err)
	assert.False(t, sent, "absent endpoint is a silent skip, not an error")
}

func TestSendReportsWebhookFailure(t *testing.T) {
	var calls atomic.Int32
	bad := webhookServer(t, http.StatusInternalServerError, &calls, nil)

	cfg := &config.Config{}
	cfg.Webhooks.Discount = bad.URL

	d := New(cfg)
	sent, err := d.Send(context.Background(), ChannelDiscount, &Message{Content: "x"})
	assert.False(t, sent)
	assert.Error(t, err)
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	bad := webhookServer(t, http.StatusInternalServerError, &calls, nil)

	cfg := &config.Config{}
	cfg.Webhooks.Low = bad.URL

	d := New(cfg)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = d.Send(ctx, ChannelLow, &Message{Content: "x"})
	}
	before := calls.Load()

	_, err := d.Send(ctx, ChannelLow, &Message{Content: "x"})
	assert.Error(t, err)
	assert.Equal(t, before, calls.Load(), "open circuit short-circuits without calling the endpoint")
}

func TestMirrorFailureDoesNotFailAnnouncement(t *testing.T) {
	var goodCalls, badCalls atomic.Int32
	good := webhookServer(t, http.StatusNoContent, &goodCalls, nil)
	bad := webhookServer(t, http.StatusInternalServerError, &badCalls, nil)

	cfg := &config.Config{}
	cfg.Webhooks.Premium = good.URL
	cfg.Webhooks.All = bad.URL

	d := New(cfg)
	sent, err := d.Announce(context.Background(), ChannelPremium, freeDeal())
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestFormatDealVariants(t *testing.T) {
	weekend := freeDeal()
	weekend.Kind = model.KindFreeWeekend
	assert.Contains(t, FormatDeal(weekend, "").Content, "free to play this weekend")

	discounted := &model.Deal{
		Title: "Celeste", Kind: model.KindDiscounted,
		CurrentPrice: 4.99, OriginalPrice: 19.99, DiscountPercent: 75, Currency: "EUR",
		Review: &model.ReviewSnapshot{Percent: 97, Count: 40000},
	}
	content := FormatDeal(discounted, "").Content
	assert.Contains(t, content, "75% off")
	assert.Contains(t, content, "97% positive")

	flagged := &model.Deal{
		Title: "MEGA DEAL", Kind: model.KindDiscounted,
		CurrentPrice: 0.99, OriginalPrice: 499.99, DiscountPercent: 99,
		AIFlag: model.FlagSuspicious,
		Suspicion: &model.Suspicion{
			Verdict:        model.VerdictFake,
			Recommendation: "verify manually before trusting this listing",
		},
	}
	assert.Contains(t, FormatDeal(flagged, "").Content, "looks suspicious")
}

func TestReporterNeverFails(t *testing.T) {
	// No status webhook configured: everything is a no-op.
	r := NewReporter(New(&config.Config{}))
	ctx := context.Background()
	r.Started(ctx, "pass-1")
	r.Success(ctx, &model.PassReport{PassID: "pass-1", Sources: map[string]model.SourceStat{
		"epic": {Fetched: 3}, "steam": {Error: "boom"},
	}})
	r.Error(ctx, "pass-1", assert.AnError)
}

func TestReporterPostsSummary(t *testing.T) {
	var calls atomic.Int32
	var last atomic.Value
	status := webhookServer(t, http.StatusNoContent, &calls, &last)

	cfg := &config.Config{}
	cfg.Webhooks.Status = status.URL

	r := NewReporter(New(cfg))
	r.Success(context.Background(), &model.PassReport{
		PassID: "pass-9", Dispatched: 4, Suppressed: 2,
		Sources: map[string]model.SourceStat{"gog": {Error: "timeout"}},
	})

	require.Equal(t, int32(1), calls.Load())
	content := last.Load().(string)
	assert.Contains(t, content, "pass-9")
	assert.Contains(t, content, "dispatched 4")
	assert.Contains(t, content, "sources failed: gog")
}
