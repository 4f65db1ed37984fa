package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/ledger"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/pipeline"
)

var flagAllArchives bool

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "List the months each archive lacks, without fetching",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		filter, err := a.filter()
		if err != nil {
			return err
		}
		gaps, err := pipeline.FindGaps(cmd.Context(), a.store, pipeline.Tasks(a.plan.Catalog, a.plan.Sources, filter))
		if err != nil {
			return err
		}
		return writeGaps(cmd.OutOrStdout(), gaps, flagAllArchives)
	},
}

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List months recorded as failed in the extraction ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		filter, err := a.filter()
		if err != nil {
			return err
		}
		led, err := ledger.Open(cmd.Context(), a.cfg)
		if err != nil {
			return err
		}
		if led == nil {
			return fmt.Errorf("failure ledger is disabled (LEDGER_DRIVER=none)")
		}
		defer func() { _ = led.Close() }()

		failures, err := listFailures(cmd.Context(), led, filter)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REGION\tSOURCE\tMONTH\tRUN\tAT\tREASON")
		for _, f := range failures {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", f.Region, f.Source, f.Month, f.RunID, f.At.Format("2006-01-02T15:04:05Z"), f.Reason)
		}
		return tw.Flush()
	},
}

type failureLister interface {
	Failures(ctx context.Context, region, source string) ([]domain.ExtractionFailure, error)
}

// listFailures queries every (region, source) pair of the filter; an empty
// side matches everything.
func listFailures(ctx context.Context, l failureLister, f pipeline.Filter) ([]domain.ExtractionFailure, error) {
	regions, sources := f.Regions, f.Sources
	if len(regions) == 0 {
		regions = []string{""}
	}
	if len(sources) == 0 {
		sources = []string{""}
	}
	var out []domain.ExtractionFailure
	for _, r := range regions {
		for _, s := range sources {
			got, err := l.Failures(ctx, r, s)
			if err != nil {
				return nil, err
			}
			out = append(out, got...)
		}
	}
	return out, nil
}

func init() {
	gapsCmd.Flags().BoolVar(&flagAllArchives, "all", false, "include archives with no missing months")
}

func writeGaps(w io.Writer, gaps []pipeline.Gap, all bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tSOURCE\tROWS\tMISSING\tRANGES")
	var incomplete, unreadable int
	for _, g := range gaps {
		if g.Err != nil {
			unreadable++
			fmt.Fprintf(tw, "%s\t%s\t-\t-\terror: %v\n", g.Region, g.Source, g.Err)
			continue
		}
		if len(g.Missing) > 0 {
			incomplete++
		} else if !all {
			continue
		}
		spans := pipeline.Ranges(g.Missing)
		parts := make([]string, len(spans))
		for i, r := range spans {
			if r.Start == r.End {
				parts[i] = r.Start.String()
				continue
			}
			parts[i] = r.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", g.Region, g.Source, g.Rows, len(g.Missing), strings.Join(parts, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%d of %d archives incomplete\n", incomplete, len(gaps)); err != nil {
		return err
	}
	if unreadable > 0 {
		return fmt.Errorf("%d of %d archives could not be read", unreadable, len(gaps))
	}
	return nil
}
