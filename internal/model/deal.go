// Package model defines the normalized deal record and the shared enums
// used across the aggregation pipeline.
package model

import (
	"time"
)

// Source identifies an upstream storefront or aggregator feed.
type Source string

const (
	SourceEpic        Source = "epic"
	SourceSteam       Source = "steam"
	SourceGOG         Source = "gog"
	SourcePlayStation Source = "playstation"
	SourceXbox        Source = "xbox"
	SourceNintendo    Source = "nintendo"
	SourceCheapShark  Source = "cheapshark"
	SourceGGDeals     Source = "ggdeals"
	SourceGamerPower  Source = "gamerpower"
	SourceHumble      Source = "humble"
)

// Kind classifies the commercial shape of an offer.
type Kind string

const (
	KindFree        Kind = "free"
	KindDiscounted  Kind = "discounted"
	KindFreeWeekend Kind = "free_weekend"
	KindBundle      Kind = "bundle"
	KindGiveaway    Kind = "giveaway"
)

// Platform identifies the gaming ecosystem a deal belongs to.
type Platform string

const (
	PlatformPC          Platform = "PC"
	PlatformPlayStation Platform = "PlayStation"
	PlatformXbox        Platform = "Xbox"
	PlatformNintendo    Platform = "Nintendo"
	PlatformVR          Platform = "VR"
	PlatformMobile      Platform = "Mobile"
	PlatformUnknown     Platform = "Unknown"
)

// Classification buckets a deal by review quality.
type Classification string

const (
	ClassPremium Classification = "premium"
	ClassLow     Classification = "low"
	ClassUnknown Classification = "unknown"
)

// AIFlag marks whether the suspicion validator considered a deal trustworthy.
type AIFlag string

const (
	FlagTrusted    AIFlag = "trusted"
	FlagSuspicious AIFlag = "suspicious"
)

// Verdict is the suspicion validator's overall judgement of a deal.
type Verdict string

const (
	VerdictReal         Verdict = "real"
	VerdictProbablyReal Verdict = "probably_real"
	VerdictSuspicious   Verdict = "suspicious"
	VerdictFake         Verdict = "fake"
)

// ReviewSnapshot holds review signals attached to a deal, either delivered by
// the source itself or looked up by the enricher. A Percent of 0 means the
// signal is absent.
type ReviewSnapshot struct {
	Percent     int    `json:"percent"`
	Count       int    `json:"count"`
	CriticScore int    `json:"critic_score,omitempty"`
	Genre       string `json:"genre,omitempty"`
}

// Suspicion is the validator's annotation. It never suppresses a deal; it
// travels with it so downstream channels can surface a warning.
type Suspicion struct {
	Trust          float64  `json:"trust"`
	Verdict        Verdict  `json:"verdict"`
	Flags          []string `json:"flags,omitempty"`
	Recommendation string   `json:"recommendation"`
}

// Deal is the single normalized record every adapter emits. Adapters fill
// identity, pricing and classification fields; the orchestrator populates
// the derived fields further down the pipeline.
type Deal struct {
	Source   Source `json:"source"`
	SourceID string `json:"source_id"`

	Title           string `json:"title"`
	NormalizedTitle string `json:"normalized_title"`

	CurrentPrice    float64 `json:"current_price"`
	OriginalPrice   float64 `json:"original_price"`
	Currency        string  `json:"currency"`
	DiscountPercent int     `json:"discount_percent"`

	Kind                    Kind `json:"kind"`
	IsDLC                   bool `json:"is_dlc,omitempty"`
	IsSubscriptionInclusion bool `json:"is_subscription_inclusion,omitempty"`

	Platform   Platform `json:"platform"`
	ConsoleGen string   `json:"console_gen,omitempty"`

	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	Review *ReviewSnapshot `json:"review,omitempty"`

	StoreURL    string `json:"store_url"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`

	SourceTrust float64 `json:"source_trust"`

	// Derived by the pipeline.
	QualityScore   float64        `json:"quality_score"`
	Classification Classification `json:"classification,omitempty"`
	StarRating     string         `json:"star_rating,omitempty"`
	Suspicion      *Suspicion     `json:"suspicion,omitempty"`
	AIFlag         AIFlag         `json:"ai_flag,omitempty"`
}

// ID returns the globally unique deal identifier, stable across passes for
// the same upstream offer.
func (d *Deal) ID() string {
	return string(d.Source) + ":" + d.SourceID
}

// Completeness returns the fraction of key presentation fields that carry
// data. Used by dedup to prefer the richest version of a duplicated title.
func (d *Deal) Completeness() float64 {
	n := 0
	if d.Description != "" {
		n++
	}
	if d.ImageURL != "" {
		n++
	}
	if d.StoreURL != "" {
		n++
	}
	if d.CurrentPrice > 0 {
		n++
	}
	return float64(n) / 4.0
}

// HasReview reports whether the deal carries any usable review signal.
func (d *Deal) HasReview() bool {
	return d.Review != nil && (d.Review.Percent > 0 || d.Review.CriticScore > 0)
}

// SourceStat is the per-source counter block on the pass report.
type SourceStat struct {
	Fetched int    `json:"fetched"`
	Error   string `json:"error,omitempty"`
}

// PassReport summarizes one orchestrator pass for the status channel.
type PassReport struct {
	PassID     string                `json:"pass_id"`
	StartedAt  time.Time             `json:"started_at"`
	Duration   time.Duration         `json:"duration"`
	Sources    map[string]SourceStat `json:"sources"`
	Considered int                   `json:"considered"`
	Enriched   int                   `json:"enriched"`
	Suspicious int                   `json:"suspicious"`
	Dispatched int                   `json:"dispatched"`
	Suppressed int                   `json:"suppressed"`
	Failed     int                   `json:"failed"`
}
