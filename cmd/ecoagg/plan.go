package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/config"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the expanded sources and windows of the run plan",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = os.Getenv("PLAN_PATH")
		}
		plan, err := config.LoadPlan(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tLABEL\tDOMAIN\tSET\tRANGE\tPOLICY\tVARIABLES")
		for _, s := range plan.Sources {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				s.Key, s.Label, s.Domain, s.VariableSet, s.Range, s.Policy, strings.Join(s.Variables(), ","))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nregions: %d  sources: %d  tasks: %d\n",
			plan.Catalog.Len(), len(plan.Sources), plan.Catalog.Len()*len(plan.Sources))
		fmt.Fprintf(out, "historical: %s  overlap: %s\n", plan.Windows.Historical, plan.Windows.Overlap)
		for _, w := range plan.Windows.Future {
			fmt.Fprintf(out, "future %s: %s\n", w.Label, w.Range)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().String("file", "", "plan file (default: PLAN_PATH or the embedded plan)")
}
