package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gameradar/dealwatch/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured deal sources and their trust weights",
	RunE: func(cmd *cobra.Command, args []string) error {
		descs, err := source.Descriptors(cfg.Sources.TrustTablePath)
		if err != nil {
			return eris.Wrap(err, "load sources")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tTRUST\tPLATFORM\tSTATUS")
		for _, d := range descs {
			status := "enabled"
			if d.RequiresKey {
				status = "needs api key"
				switch d.Name {
				case "ggdeals":
					if cfg.APIs.GGDealsKey != "" {
						status = "enabled"
					}
				}
			}
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", d.Name, d.Trust, d.Platform, status)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
