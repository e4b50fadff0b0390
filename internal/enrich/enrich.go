// Package enrich looks up review snapshots for deals whose source carries
// no review data. Lookups are memoized per pass and spaced out to respect
// upstream quotas; a miss is a normal outcome, never an error.
package enrich

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/internal/source"
)

// Enricher resolves review snapshots through the Steam store search and
// review summary endpoints. One instance per pass; the memo table is not
// shared across passes.
type Enricher struct {
	client     *source.Client
	limiter    *rate.Limiter
	memo       map[string]*model.ReviewSnapshot
	searchURL  string
	reviewsURL string
}

// New creates an Enricher. spacing is the minimum gap between upstream
// lookups.
func New(client *source.Client, spacing time.Duration) *Enricher {
	if spacing <= 0 {
		spacing = 500 * time.Millisecond
	}
	return &Enricher{
		client:     client,
		limiter:    rate.NewLimiter(rate.Every(spacing), 1),
		memo:       make(map[string]*model.ReviewSnapshot),
		searchURL:  "https://store.steampowered.com/api/storesearch/",
		reviewsURL: "https://store.steampowered.com/appreviews",
	}
}

// WithURLs overrides the upstream endpoints (for testing).
func (e *Enricher) WithURLs(search, reviews string) *Enricher {
	e.searchURL = search
	e.reviewsURL = reviews
	return e
}

type searchResponse struct {
	Items []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
}

type reviewsResponse struct {
	Success      int `json:"success"`
	QuerySummary struct {
		TotalPositive int    `json:"total_positive"`
		TotalReviews  int    `json:"total_reviews"`
		ScoreDesc     string `json:"review_score_desc"`
	} `json:"query_summary"`
}

// Lookup returns a review snapshot for the title, or nil when no acceptable
// match exists. Results, including misses, are memoized for the pass.
func (e *Enricher) Lookup(ctx context.Context, title, storeHint string) *model.ReviewSnapshot {
	key := strings.ToLower(strings.TrimSpace(title))
	if key == "" {
		return nil
	}
	if snap, seen := e.memo[key]; seen {
		return snap
	}

	snap := e.lookup(ctx, title, storeHint)
	e.memo[key] = snap
	return snap
}

func (e *Enricher) lookup(ctx context.Context, title, storeHint string) *model.ReviewSnapshot {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil
	}

	q := url.Values{}
	q.Set("term", title)
	q.Set("cc", "es")
	q.Set("l", "spanish")

	var search searchResponse
	if err := e.client.GetJSON(ctx, e.searchURL+"?"+q.Encode(), &search); err != nil {
		zap.L().Debug("enrich: search failed", zap.String("title", title), zap.Error(err))
		return nil
	}

	// A deal sourced from the review catalog's own storefront carries a
	// verbatim catalog title, so the top hit is trusted without the
	// similarity gate. Foreign-store titles must pass it.
	trustTopHit := storeHint == "steam"
	for _, item := range search.Items {
		if !trustTopHit && !Similar(title, item.Name) {
			continue
		}
		if snap := e.fetchReviews(ctx, item.ID); snap != nil {
			return snap
		}
		trustTopHit = false
	}
	return nil
}

func (e *Enricher) fetchReviews(ctx context.Context, appID int) *model.ReviewSnapshot {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil
	}

	u := fmt.Sprintf("%s/%d?json=1&language=all&purchase_type=all", e.reviewsURL, appID)
	var parsed reviewsResponse
	if err := e.client.GetJSON(ctx, u, &parsed); err != nil {
		zap.L().Debug("enrich: reviews failed", zap.Int("app_id", appID), zap.Error(err))
		return nil
	}
	if parsed.Success != 1 || parsed.QuerySummary.TotalReviews == 0 {
		return nil
	}

	percent := parsed.QuerySummary.TotalPositive * 100 / parsed.QuerySummary.TotalReviews
	return &model.ReviewSnapshot{
		Percent: percent,
		Count:   parsed.QuerySummary.TotalReviews,
	}
}
