package summary

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/observability"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/series"
)

// ArchiveLoader reads archives.
type ArchiveLoader interface {
	Load(ctx context.Context, region, source string) (*domain.Archive, error)
}

// SeriesSpec names the archive behind one labelled column.
type SeriesSpec struct {
	Label  string
	Source string
	Policy domain.DuplicatePolicy
}

// GroupSpec names the archives feeding one variable set.
type GroupSpec struct {
	Variables      []string
	Observed       string
	ObservedPolicy domain.DuplicatePolicy
	Models         []SeriesSpec
}

// Key returns the object key of a region's summary table.
func Key(region string) string {
	return path.Join("summary", region+"_summary.csv")
}

// Summarizer loads a region's archives, summarizes them and writes the table.
type Summarizer struct {
	archives ArchiveLoader
	objects  series.ObjectStore
	groups   []GroupSpec
	windows  Windows
	opts     Options
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewSummarizer creates a Summarizer writing tables to objects.
func NewSummarizer(archives ArchiveLoader, objects series.ObjectStore, groups []GroupSpec, w Windows, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		archives: archives,
		objects:  objects,
		groups:   groups,
		windows:  w,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run summarizes one region and writes summary/<region>_summary.csv.
func (s *Summarizer) Run(ctx context.Context, region string) (Result, error) {
	log := s.logger.With("region", region)

	groups := make([]Group, 0, len(s.groups))
	for _, gs := range s.groups {
		obs, err := s.load(ctx, log, region, gs.Observed, gs.ObservedPolicy)
		if err != nil {
			return Result{}, fmt.Errorf("summarize %s: %w", region, err)
		}
		g := Group{Variables: gs.Variables, Observed: obs}
		for _, m := range gs.Models {
			a, err := s.load(ctx, log, region, m.Source, m.Policy)
			if err != nil {
				return Result{}, fmt.Errorf("summarize %s: %w", region, err)
			}
			if a.Len() == 0 {
				log.Warn("model archive is empty, column omitted", "model", m.Label, "source", m.Source)
				continue
			}
			g.Models = append(g.Models, Series{Label: m.Label, Archive: a})
		}
		groups = append(groups, g)
	}

	res := Summarize(region, groups, s.windows, s.opts)
	for _, v := range res.Skipped {
		log.Warn("no observed data for variable, skipped", "variable", v)
	}
	for _, v := range res.Degenerate {
		s.metrics.DegenerateBase.Inc()
		log.Warn("degenerate baseline, percent change is undefined", "variable", v)
	}

	data, err := Encode(res.Rows)
	if err != nil {
		return res, fmt.Errorf("summarize %s: %w", region, err)
	}
	if err := s.objects.Put(ctx, Key(region), data); err != nil {
		return res, fmt.Errorf("summarize %s: write table: %w", region, err)
	}
	s.metrics.SummariesWritten.Inc()
	s.metrics.SummaryRows.Add(float64(len(res.Rows)))
	log.Info("summary written", "rows", len(res.Rows), "key", Key(region))
	return res, nil
}

// load reads an archive and collapses repeated months with policy so no
// month is counted twice. An empty policy keeps the first row.
func (s *Summarizer) load(ctx context.Context, log *slog.Logger, region, source string, policy domain.DuplicatePolicy) (*domain.Archive, error) {
	a, err := s.archives.Load(ctx, region, source)
	if err != nil {
		return nil, err
	}
	if a.IsSorted() {
		return a, nil
	}
	if policy == "" {
		policy = domain.KeepFirst
	}
	out := series.Merge(a, nil, policy)
	log.Warn("archive has unordered or repeated months, normalized in memory",
		"source", source, "rows", a.Len(), "unique", out.Len())
	return out, nil
}
