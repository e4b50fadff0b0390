package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gameradar/dealwatch/internal/orchestrator"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one aggregation pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		o, err := orchestrator.New(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "build pipeline")
		}
		defer o.Close() //nolint:errcheck

		report, err := o.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				zap.L().Warn("pass interrupted")
				return context.Canceled
			}
			return eris.Wrap(err, "pass")
		}

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the pass report as JSON")
	rootCmd.AddCommand(runCmd)
}
