// Package cache remembers which deals have already been announced so a pass
// never posts the same offer twice. Three drivers share one interface: a
// JSON file for single-host setups, SQLite for durability without a server,
// and Postgres when several workers share state.
package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gameradar/dealwatch/internal/config"
	"github.com/gameradar/dealwatch/internal/model"
)

// Entry records one announced deal.
type Entry struct {
	Title    string    `json:"title"`
	Source   string    `json:"source"`
	Kind     string    `json:"kind"`
	PostedAt time.Time `json:"posted_at"`
}

// Stats summarizes cache contents for the stats subcommand.
type Stats struct {
	Driver   string `json:"driver"`
	Posted   int    `json:"posted"`
	Weekends int    `json:"weekends"`
}

// Store is the published-deal cache. Mark operations must be idempotent:
// marking an already-marked id is not an error.
type Store interface {
	// IsPosted reports whether the deal id was announced before.
	IsPosted(ctx context.Context, id string) (bool, error)
	// MarkPosted records a deal as announced.
	MarkPosted(ctx context.Context, d *model.Deal) error

	// WeekendActive reports whether a free-weekend promotion is still
	// running: marked earlier and not yet past its expiry.
	WeekendActive(ctx context.Context, id string, now time.Time) (bool, error)
	// MarkWeekend records a free-weekend promotion with its expiry.
	MarkWeekend(ctx context.Context, id string, expiresAt time.Time) error

	// Prune removes posted entries older than the cutoff and weekend
	// records that expired before now, returning how many were dropped.
	Prune(ctx context.Context, cutoff, now time.Time) (int, error)

	Stats(ctx context.Context) (*Stats, error)

	// Save flushes pending state. A no-op for database drivers.
	Save(ctx context.Context) error
	Close() error
}

// Open constructs the store named by the config.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return OpenFile(cfg.Path)
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
