package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/archive"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/config"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/observability"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/pipeline"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/series"
)

// app holds the dependencies every command shares.
type app struct {
	cfg     *config.Config
	plan    *config.Plan
	logger  *slog.Logger
	metrics *observability.Metrics
	objects series.ObjectStore
	store   *series.Store
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)

	plan, err := config.LoadPlan(cfg.PlanPath)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}

	objects, err := archive.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open archive storage: %w", err)
	}

	return &app{
		cfg:     cfg,
		plan:    plan,
		logger:  logger,
		metrics: observability.NewMetrics(),
		objects: objects,
		store:   series.NewStore(objects),
	}, nil
}

// filter validates the --region and --source flags against the plan.
func (a *app) filter() (pipeline.Filter, error) {
	return buildFilter(a.plan, flagRegions, flagSources)
}

func buildFilter(plan *config.Plan, regions, sources []string) (pipeline.Filter, error) {
	for _, code := range regions {
		if _, ok := plan.Catalog.Lookup(code); !ok {
			return pipeline.Filter{}, fmt.Errorf("unknown region %q", code)
		}
	}
	for _, key := range sources {
		if _, ok := plan.Source(key); !ok {
			return pipeline.Filter{}, fmt.Errorf("unknown source %q", key)
		}
	}
	return pipeline.Filter{Regions: slices.Clone(regions), Sources: slices.Clone(sources)}, nil
}

// regionCodes lists the catalog codes that pass the region filter.
func (a *app) regionCodes(f pipeline.Filter) []string {
	var codes []string
	for _, r := range a.plan.Catalog.Regions() {
		if len(f.Regions) == 0 || slices.Contains(f.Regions, r.Code) {
			codes = append(codes, r.Code)
		}
	}
	return codes
}
