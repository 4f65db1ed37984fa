package summary

import (
	"fmt"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/config"
)

// GroupsFromPlan resolves the plan's summary groups to archive sources and
// their column labels.
func GroupsFromPlan(p *config.Plan) ([]GroupSpec, error) {
	out := make([]GroupSpec, 0, len(p.Summary))
	for _, g := range p.Summary {
		gs := GroupSpec{Variables: g.Variables, Observed: g.Observed}
		if obs, ok := p.Source(g.Observed); ok {
			gs.ObservedPolicy = obs.Policy
		}
		for _, key := range g.Models {
			src, ok := p.Source(key)
			if !ok {
				return nil, fmt.Errorf("summary group %s: unknown source %q", g.VariableSet, key)
			}
			gs.Models = append(gs.Models, SeriesSpec{Label: src.Label, Source: key, Policy: src.Policy})
		}
		out = append(out, gs)
	}
	return out, nil
}

// WindowsFromPlan returns the plan's aggregation windows.
func WindowsFromPlan(p *config.Plan) Windows {
	return Windows(p.Windows)
}
