// Command ecoagg keeps per-ecoregion monthly climate and fire-weather
// archives complete and turns them into bias-corrected period summaries.
//
// Usage:
//
//	ecoagg gaps      [--region kolapen] [--source cems_2001_2023]
//	ecoagg reconcile [--region ...] [--source ...] [--summarize]
//	ecoagg summarize [--region ...] [--percent-change-only]
//	ecoagg failures  [--region ...] [--source ...]
//	ecoagg plan
//
// Settings come from the environment (and .env when present); the regions,
// sources and windows come from the run plan at PLAN_PATH or the embedded
// default.
package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ecoagg",
	Short: "Ecoregion climate and fire-weather archive reconciliation and summaries",
	Long: `ecoagg maintains one monthly CSV archive per (ecoregion, source), fetching
only the months an archive lacks from the raster query service, and derives
per-region summary tables comparing bias-corrected model projections to the
observed baseline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagRegions []string
	flagSources []string
)

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&flagRegions, "region", nil, "restrict to these region codes (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&flagSources, "source", nil, "restrict to these source keys (repeatable)")

	rootCmd.AddCommand(reconcileCmd, summarizeCmd, gapsCmd, failuresCmd, planCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
