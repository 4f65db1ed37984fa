package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/summary"
)

var flagPercentChangeOnly bool

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Write per-region bias-corrected summary tables",
	Long: `summarize reads each region's observed and model archives, bias-corrects
the model series with a monthly climatology offset over the overlap window,
and writes summary/<region>_summary.csv with period means and percent change
against the observed historical baseline.`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().BoolVar(&flagPercentChangeOnly, "percent-change-only", false, "keep only rows that carry a percent change")
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	filter, err := a.filter()
	if err != nil {
		return err
	}
	return summarizeRegions(ctx, a, a.regionCodes(filter), flagPercentChangeOnly)
}

// summarizeRegions writes one table per region. A failing region is logged
// and the rest still run.
func summarizeRegions(ctx context.Context, a *app, regions []string, percentChangeOnly bool) error {
	groups, err := summary.GroupsFromPlan(a.plan)
	if err != nil {
		return err
	}
	s := summary.NewSummarizer(a.store, a.objects, groups, summary.WindowsFromPlan(a.plan),
		summary.Options{PercentChangeOnly: percentChangeOnly}, a.metrics, a.logger)

	var errs []error
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if _, err := s.Run(ctx, region); err != nil {
			a.logger.Error("summary failed", "region", region, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d summaries failed: %w", len(errs), len(regions), errors.Join(errs...))
	}
	return nil
}
