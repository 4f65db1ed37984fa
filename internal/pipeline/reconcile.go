package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/observability"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/series"
)

// ArchiveStore loads and rewrites whole archives.
type ArchiveStore interface {
	Load(ctx context.Context, region, source string) (*domain.Archive, error)
	Persist(ctx context.Context, a *domain.Archive) error
}

// FailureRecorder keeps skipped months for later inspection.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, f domain.ExtractionFailure) error
}

type runIDKey struct{}

// WithRunID tags ctx with the run identifier carried into reports and the
// failure ledger.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run identifier stored in ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Reconciler fills the gaps of one archive at a time.
type Reconciler struct {
	store     ArchiveStore
	extractor Extractor
	failures  FailureRecorder
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewReconciler creates a Reconciler. failures may be nil.
func NewReconciler(store ArchiveStore, extractor Extractor, failures FailureRecorder, metrics *observability.Metrics, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		extractor: extractor,
		failures:  failures,
		metrics:   metrics,
		logger:    logger,
	}
}

// Reconcile loads the archive for (region, source), extracts every month of
// the source range the archive lacks, and persists the merged archive when at
// least one month was extracted. An archive loaded out of order or with
// repeated months is normalized with the source's duplicate policy and
// persisted even when nothing new is fetched. Per-month failures are recorded
// and skipped; the next run retries them. Running it again with nothing new
// to fetch leaves a normalized archive untouched.
//
// Cancelling ctx stops scheduling further months; months already extracted
// are still persisted.
func (r *Reconciler) Reconcile(ctx context.Context, region domain.Region, source domain.Source) (domain.TaskReport, error) {
	report := domain.TaskReport{
		RunID:     RunID(ctx),
		Region:    region.Code,
		Source:    source.Key,
		StartedAt: domain.Now(),
	}
	log := r.logger.With("region", region.Code, "source", source.Key)

	finish := func(status domain.TaskStatus, err error) (domain.TaskReport, error) {
		report.Status = status
		report.FinishedAt = domain.Now()
		if err != nil {
			report.Error = err.Error()
		}
		return report, err
	}

	archive, err := r.store.Load(ctx, region.Code, source.Key)
	if err != nil {
		return finish(domain.StatusFailed, err)
	}
	report.Rows = archive.Len()

	dirty := !archive.IsSorted()
	if dirty {
		archive = series.Merge(archive, nil, source.Policy)
		log.Warn("archive has unordered or repeated months, normalizing",
			"rows", report.Rows, "unique", archive.Len(), "policy", string(source.Policy))
	}

	missing := series.MissingPeriods(archive, source.Range)
	report.Missing = len(missing)
	if len(missing) == 0 {
		if dirty {
			return r.persist(ctx, log, &report, finish, archive)
		}
		log.Debug("archive complete", "rows", archive.Len())
		return finish(domain.StatusComplete, nil)
	}
	r.metrics.PeriodsRequested.Add(float64(len(missing)))
	log.Info("filling missing months",
		"missing", len(missing), "first", missing[0].String(), "last", missing[len(missing)-1].String())

	var records []domain.Record
	for _, m := range missing {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		rec, err := r.extractor.Extract(ctx, region, source, m)
		if err != nil {
			if ctx.Err() != nil {
				report.Interrupted = true
				break
			}
			r.skip(ctx, log, &report, m, err)
			continue
		}
		records = append(records, rec)
		r.metrics.PeriodsExtracted.Inc()
	}
	report.Extracted = len(records)

	if len(records) == 0 {
		if dirty {
			return r.persist(ctx, log, &report, finish, archive)
		}
		log.Info("no new data", "skipped", report.Skipped, "interrupted", report.Interrupted)
		return finish(domain.StatusNoNewData, nil)
	}

	if archive.Len() == 0 && len(archive.Columns) == 0 {
		archive.Columns = source.Variables()
	}
	return r.persist(ctx, log, &report, finish, series.Merge(archive, records, source.Policy))
}

func (r *Reconciler) persist(ctx context.Context, log *slog.Logger, report *domain.TaskReport,
	finish func(domain.TaskStatus, error) (domain.TaskReport, error), merged *domain.Archive) (domain.TaskReport, error) {
	// Persist even when the run is being cancelled so extracted months are kept.
	if err := r.store.Persist(context.WithoutCancel(ctx), merged); err != nil {
		return finish(domain.StatusFailed, fmt.Errorf("reconcile %s/%s: %w", report.Region, report.Source, err))
	}
	report.Rows = merged.Len()
	r.metrics.ArchiveRows.Add(float64(merged.Len()))

	log.Info("archive updated",
		"extracted", report.Extracted, "skipped", report.Skipped, "rows", merged.Len())
	return finish(domain.StatusUpdated, nil)
}

func (r *Reconciler) skip(ctx context.Context, log *slog.Logger, report *domain.TaskReport, m domain.Month, err error) {
	report.Skipped++
	report.SkippedMonths = append(report.SkippedMonths, m)
	r.metrics.PeriodsSkipped.WithLabelValues(report.Source).Inc()

	level := slog.LevelWarn
	if !errors.Is(err, domain.ErrExtraction) {
		level = slog.LevelError
	}
	log.Log(ctx, level, "extraction failed, skipping month", "month", m.String(), "error", err)

	if r.failures == nil {
		return
	}
	f := domain.ExtractionFailure{
		RunID:  report.RunID,
		Region: report.Region,
		Source: report.Source,
		Month:  m,
		Reason: err.Error(),
		At:     domain.Now(),
	}
	if err := r.failures.RecordFailure(ctx, f); err != nil {
		log.Warn("record extraction failure", "month", m.String(), "error", err)
	}
}
