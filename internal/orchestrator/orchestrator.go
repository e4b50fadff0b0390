// Package orchestrator runs one aggregation pass: fetch from every source,
// enrich, deduplicate, score, validate, and dispatch whatever the cache has
// not seen before.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gameradar/dealwatch/internal/cache"
	"github.com/gameradar/dealwatch/internal/config"
	"github.com/gameradar/dealwatch/internal/dedup"
	"github.com/gameradar/dealwatch/internal/dispatch"
	"github.com/gameradar/dealwatch/internal/enrich"
	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/internal/score"
	"github.com/gameradar/dealwatch/internal/source"
	"github.com/gameradar/dealwatch/internal/suspect"
	"github.com/gameradar/dealwatch/pkg/cheapshark"
)

// defaultWeekendWindow is assumed when a free-weekend promotion carries no
// end date: Thursday announcements typically run through Monday.
const defaultWeekendWindow = 96 * time.Hour

// Orchestrator owns the per-pass pipeline. Construct one per pass.
type Orchestrator struct {
	cfg        *config.Config
	client     *source.Client
	store      cache.Store
	dispatcher *dispatch.Dispatcher
	reporter   *dispatch.Reporter
	enricher   *enrich.Enricher
	validator  *suspect.Validator
	adapters   []source.Registered
	nowFunc    func() time.Time
}

// Option overrides a pipeline component, used by tests and by commands that
// only need part of the pipeline.
type Option func(*Orchestrator)

// WithCache substitutes the cache store.
func WithCache(s cache.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithAdapters substitutes the adapter set.
func WithAdapters(adapters []source.Registered) Option {
	return func(o *Orchestrator) { o.adapters = adapters }
}

// WithDispatcher substitutes the dispatcher.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(o *Orchestrator) { o.dispatcher = d }
}

// WithEnricher substitutes the review enricher.
func WithEnricher(e *enrich.Enricher) Option {
	return func(o *Orchestrator) { o.enricher = e }
}

// WithValidator substitutes the suspicion validator.
func WithValidator(v *suspect.Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.nowFunc = now }
}

// New wires a pass pipeline from config, then applies overrides.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:     cfg,
		client:  source.NewClient(source.ClientOptions{RateLimiters: source.DefaultRateLimiters()}),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.store == nil {
		s, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
		o.store = s
	}
	if o.adapters == nil {
		adapters, err := source.Build(cfg, o.client)
		if err != nil {
			return nil, err
		}
		o.adapters = adapters
	}
	if o.dispatcher == nil {
		o.dispatcher = dispatch.New(cfg)
	}
	if o.enricher == nil {
		spacing := time.Duration(cfg.Enrich.LookupSpacingMillis) * time.Millisecond
		o.enricher = enrich.New(o.client, spacing)
	}
	if o.validator == nil && cfg.Features.EnableAIValidation {
		shark := cheapshark.NewClient(cheapshark.WithHTTPClient(o.client.HTTP()))
		o.validator = suspect.New(suspect.NewSharkHistory(shark))
	}
	o.reporter = dispatch.NewReporter(o.dispatcher)
	return o, nil
}

// Close releases the cache backend.
func (o *Orchestrator) Close() error {
	return o.store.Close()
}

// Run executes one pass and returns its report. A pass only fails outright
// on cache or dispatch-infrastructure errors; individual source failures
// are recorded on the report and skipped.
func (o *Orchestrator) Run(ctx context.Context) (*model.PassReport, error) {
	started := o.nowFunc()
	report := &model.PassReport{
		PassID:    uuid.New().String(),
		StartedAt: started,
		Sources:   make(map[string]model.SourceStat),
	}
	zap.L().Info("pass started", zap.String("pass_id", report.PassID))
	o.reporter.Started(ctx, report.PassID)

	if err := o.run(ctx, report); err != nil {
		report.Duration = o.nowFunc().Sub(started)
		o.reporter.Error(ctx, report.PassID, err)
		return report, err
	}

	report.Duration = o.nowFunc().Sub(started)
	o.reporter.Success(ctx, report)
	zap.L().Info("pass finished",
		zap.String("pass_id", report.PassID),
		zap.Duration("duration", report.Duration),
		zap.Int("dispatched", report.Dispatched),
		zap.Int("suppressed", report.Suppressed))
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, report *model.PassReport) error {
	now := o.nowFunc()
	maxAge := o.cfg.Cache.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}
	cutoff := now.Add(-time.Duration(maxAge) * 24 * time.Hour)
	if pruned, err := o.store.Prune(ctx, cutoff, now); err != nil {
		return eris.Wrap(err, "orchestrator: prune cache")
	} else if pruned > 0 {
		zap.L().Info("cache pruned", zap.Int("entries", pruned))
	}

	deals := o.fetchAll(ctx, report)
	report.Considered = len(deals)

	o.enrichMissing(ctx, deals, report)

	free, discounted, weekends := partitionKinds(deals)

	// Dedup each pool, fold fully-discounted offers into the free pool,
	// then dedup the free pool again since absorption can reintroduce
	// duplicates.
	free = dedup.Deduplicate(free)
	discounted = dedup.Deduplicate(discounted)
	free, discounted = dedup.AbsorbFullDiscounts(free, discounted)
	free = dedup.Deduplicate(free)
	weekends = dedup.Deduplicate(weekends)

	opts := score.Options{Advanced: o.cfg.Features.EnableAdvancedScoring}
	for _, pool := range [][]model.Deal{free, discounted, weekends} {
		for i := range pool {
			score.Apply(&pool[i], opts)
		}
	}

	o.validateAll(ctx, free, report)
	o.validateAll(ctx, discounted, report)
	o.validateAll(ctx, weekends, report)

	o.dispatchPools(ctx, report, free, discounted, weekends)

	if err := o.store.Save(ctx); err != nil {
		return eris.Wrap(err, "orchestrator: save cache")
	}
	return nil
}

// fetchAll runs every adapter with per-source isolation: a source that
// fails or times out contributes nothing but never aborts the pass.
func (o *Orchestrator) fetchAll(ctx context.Context, report *model.PassReport) []model.Deal {
	timeout := time.Duration(o.cfg.Sources.FetchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	var mu sync.Mutex
	var all []model.Deal

	fetch := func(reg source.Registered) {
		name := string(reg.Descriptor.Name)
		fctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		deals, err := reg.Adapter.Fetch(fctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			zap.L().Warn("source fetch failed", zap.String("source", name), zap.Error(err))
			report.Sources[name] = model.SourceStat{Error: err.Error()}
			return
		}
		for i := range deals {
			deals[i].SourceTrust = reg.Descriptor.Trust
		}
		report.Sources[name] = model.SourceStat{Fetched: len(deals)}
		all = append(all, deals...)
	}

	if !o.cfg.Features.EnableParallelFetch {
		for _, reg := range o.adapters {
			fetch(reg)
		}
		return all
	}

	g, _ := errgroup.WithContext(ctx)
	limit := o.cfg.Sources.MaxConcurrent
	if limit <= 0 {
		limit = 10
	}
	g.SetLimit(limit)
	for _, reg := range o.adapters {
		reg := reg
		g.Go(func() error {
			fetch(reg)
			return nil
		})
	}
	_ = g.Wait()
	return all
}

// enrichMissing looks up review snapshots for every deal that arrived
// without one. Console titles often have a PC release in the review
// catalog; when they don't, the lookup is a normal miss.
func (o *Orchestrator) enrichMissing(ctx context.Context, deals []model.Deal, report *model.PassReport) {
	for i := range deals {
		d := &deals[i]
		if d.HasReview() {
			continue
		}
		if snap := o.enricher.Lookup(ctx, d.Title, string(d.Source)); snap != nil {
			d.Review = snap
			report.Enriched++
		}
	}
}

func (o *Orchestrator) validateAll(ctx context.Context, deals []model.Deal, report *model.PassReport) {
	threshold := o.cfg.Suspect.TrustThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	for i := range deals {
		d := &deals[i]
		if o.validator == nil {
			d.AIFlag = model.FlagTrusted
			continue
		}
		d.Suspicion = o.validator.Validate(ctx, d)
		if d.Suspicion.Trust < threshold {
			d.AIFlag = model.FlagSuspicious
			report.Suspicious++
		} else {
			d.AIFlag = model.FlagTrusted
		}
	}
}

// wantDiscount applies the discount-channel selection rules.
func (o *Orchestrator) wantDiscount(d *model.Deal) bool {
	dc := o.cfg.Deals
	if d.QualityScore < dc.MinScore {
		return false
	}
	if d.DiscountPercent < dc.MinDiscount || d.DiscountPercent > dc.MaxDiscount {
		return false
	}
	if dc.MaxPrice > 0 && d.CurrentPrice > dc.MaxPrice {
		return false
	}
	return true
}

func (o *Orchestrator) dispatchPools(ctx context.Context, report *model.PassReport, free, discounted, weekends []model.Deal) {
	now := o.nowFunc()

	for i := range free {
		d := &free[i]
		ch := dispatch.ChannelLow
		if d.Classification == model.ClassPremium {
			ch = dispatch.ChannelPremium
		}
		o.announce(ctx, report, d, ch, func() (bool, error) {
			return o.store.IsPosted(ctx, d.ID())
		}, func() error {
			return o.store.MarkPosted(ctx, d)
		})
	}

	for i := range discounted {
		d := &discounted[i]
		if !o.wantDiscount(d) {
			continue
		}
		o.announce(ctx, report, d, dispatch.ChannelDiscount, func() (bool, error) {
			return o.store.IsPosted(ctx, d.ID())
		}, func() error {
			return o.store.MarkPosted(ctx, d)
		})
	}

	for i := range weekends {
		d := &weekends[i]
		expires := now.Add(defaultWeekendWindow)
		if d.EndsAt != nil {
			expires = *d.EndsAt
		}
		o.announce(ctx, report, d, dispatch.ChannelFreeWeekend, func() (bool, error) {
			return o.store.WeekendActive(ctx, d.ID(), now)
		}, func() error {
			return o.store.MarkWeekend(ctx, d.ID(), expires)
		})
	}
}

// announce runs the suppress-dispatch-mark sequence for one deal. The cache
// is only written after a confirmed send so a failed webhook retries next
// pass.
func (o *Orchestrator) announce(ctx context.Context, report *model.PassReport, d *model.Deal, ch dispatch.Channel, posted func() (bool, error), mark func() error) {
	seen, err := posted()
	if err != nil {
		zap.L().Error("cache lookup failed", zap.String("deal", d.ID()), zap.Error(err))
		report.Failed++
		return
	}
	if seen {
		report.Suppressed++
		return
	}

	sent, err := o.dispatcher.Announce(ctx, ch, d)
	if err != nil {
		zap.L().Error("dispatch failed", zap.String("deal", d.ID()), zap.Error(err))
		report.Failed++
		return
	}
	if !sent {
		// Channel not configured; nothing to remember.
		return
	}

	o.mirrorPlatform(ctx, d)

	if err := mark(); err != nil {
		zap.L().Error("cache mark failed", zap.String("deal", d.ID()), zap.Error(err))
		report.Failed++
		return
	}
	report.Dispatched++
}

// mirrorPlatform forwards the announcement to the platform channel, when
// one is configured. Best-effort.
func (o *Orchestrator) mirrorPlatform(ctx context.Context, d *model.Deal) {
	var ch dispatch.Channel
	switch d.Platform {
	case model.PlatformPlayStation:
		ch = dispatch.ChannelPlayStation
	case model.PlatformXbox:
		ch = dispatch.ChannelXbox
	case model.PlatformNintendo:
		ch = dispatch.ChannelNintendo
	case model.PlatformVR:
		ch = dispatch.ChannelVR
	case model.PlatformPC:
		if d.Kind != model.KindDiscounted {
			return
		}
		ch = dispatch.ChannelPCDeals
	default:
		return
	}
	if _, err := o.dispatcher.Post(ctx, ch, d); err != nil {
		zap.L().Warn("platform mirror failed", zap.String("deal", d.ID()), zap.Error(err))
	}
}

// partitionKinds splits fetched deals into the three dispatch pools.
func partitionKinds(deals []model.Deal) (free, discounted, weekends []model.Deal) {
	for _, d := range deals {
		switch d.Kind {
		case model.KindFree, model.KindGiveaway:
			free = append(free, d)
		case model.KindFreeWeekend:
			weekends = append(weekends, d)
		default:
			discounted = append(discounted, d)
		}
	}
	return free, discounted, weekends
}
