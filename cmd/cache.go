package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gameradar/dealwatch/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or maintain the published-deal cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer store.Close() //nolint:errcheck

		stats, err := store.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "read stats")
		}
		fmt.Printf("driver: %s\nposted deals: %d\nactive weekends: %d\n",
			stats.Driver, stats.Posted, stats.Weekends)
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop entries older than the configured retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer store.Close() //nolint:errcheck

		maxAge := cfg.Cache.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 30
		}
		now := time.Now().UTC()
		n, err := store.Prune(ctx, now.Add(-time.Duration(maxAge)*24*time.Hour), now)
		if err != nil {
			return eris.Wrap(err, "prune cache")
		}
		if err := store.Save(ctx); err != nil {
			return eris.Wrap(err, "save cache")
		}
		fmt.Printf("pruned %d entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
