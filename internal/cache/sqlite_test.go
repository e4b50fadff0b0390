package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameradar/dealwatch/internal/config"
)

func configFor(driver, path string) config.CacheConfig {
	return config.CacheConfig{Driver: driver, Path: path}
}

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	posted, err := s.IsPosted(ctx, "epic:offer-123")
	require.NoError(t, err)
	assert.False(t, posted)

	require.NoError(t, s.MarkPosted(ctx, sampleDeal()))
	// Marking twice is not an error.
	require.NoError(t, s.MarkPosted(ctx, sampleDeal()))

	posted, err = s.IsPosted(ctx, "epic:offer-123")
	require.NoError(t, err)
	assert.True(t, posted)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Posted)
	assert.Equal(t, "sqlite", stats.Driver)
}

func TestSQLiteWeekendWindow(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	now := time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkWeekend(ctx, "steam:730", now.Add(72*time.Hour)))

	active, err := s.WeekendActive(ctx, "steam:730", now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, active)

	active, err = s.WeekendActive(ctx, "steam:730", now.Add(96*time.Hour))
	require.NoError(t, err)
	assert.False(t, active)

	// Re-marking extends the window.
	require.NoError(t, s.MarkWeekend(ctx, "steam:730", now.Add(120*time.Hour)))
	active, err = s.WeekendActive(ctx, "steam:730", now.Add(96*time.Hour))
	require.NoError(t, err)
	assert.True(t, active)
}

func TestSQLitePrune(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	require.NoError(t, s.MarkPosted(ctx, sampleDeal()))
	require.NoError(t, s.MarkWeekend(ctx, "gone:1", time.Now().UTC().Add(-time.Hour)))

	n, err := s.Prune(ctx, time.Now().UTC().Add(-30*24*time.Hour), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "expired weekend goes, fresh posted entry stays")

	posted, err := s.IsPosted(ctx, "epic:offer-123")
	require.NoError(t, err)
	assert.True(t, posted)
}
