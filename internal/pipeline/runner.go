package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/observability"
)

// ErrTasksFailed is returned by Runner.Run when at least one task could not
// be reconciled. The other tasks still ran.
var ErrTasksFailed = errors.New("reconciliation tasks failed")

// Task is one (region, source) archive to reconcile.
type Task struct {
	Region domain.Region
	Source domain.Source
}

// Filter restricts a task list. Empty fields match everything.
type Filter struct {
	Regions []string
	Sources []string
}

// Tasks expands the catalog and sources into a region-major task list.
func Tasks(catalog *domain.Catalog, sources []domain.Source, f Filter) []Task {
	var tasks []Task
	for _, region := range catalog.Regions() {
		if len(f.Regions) > 0 && !slices.Contains(f.Regions, region.Code) {
			continue
		}
		for _, src := range sources {
			if len(f.Sources) > 0 && !slices.Contains(f.Sources, src.Key) {
				continue
			}
			tasks = append(tasks, Task{Region: region, Source: src})
		}
	}
	return tasks
}

// TaskReconciler reconciles a single archive.
type TaskReconciler interface {
	Reconcile(ctx context.Context, region domain.Region, source domain.Source) (domain.TaskReport, error)
}

// Notifier publishes task and run reports.
type Notifier interface {
	NotifyTask(ctx context.Context, r domain.TaskReport) error
	NotifyRun(ctx context.Context, r domain.RunReport) error
}

// NopNotifier discards reports.
type NopNotifier struct{}

func (NopNotifier) NotifyTask(context.Context, domain.TaskReport) error { return nil }
func (NopNotifier) NotifyRun(context.Context, domain.RunReport) error   { return nil }

// Runner processes a task list with bounded concurrency. Every archive is
// touched by exactly one goroutine.
type Runner struct {
	reconciler TaskReconciler
	notifier   Notifier
	workers    int
	metrics    *observability.Metrics
	logger     *slog.Logger
	ready      atomic.Bool
	last       atomic.Pointer[domain.RunReport]
}

// NewRunner creates a Runner. workers below 1 run tasks sequentially; a nil
// notifier discards reports.
func NewRunner(rec TaskReconciler, notifier Notifier, workers int, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Runner{
		reconciler: rec,
		notifier:   notifier,
		workers:    workers,
		metrics:    metrics,
		logger:     logger,
	}
}

// CheckReadiness returns nil once at least one task has finished.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no reconciliation task has finished yet")
	}
	return nil
}

// LastRun returns the report of the most recently finished run.
func (r *Runner) LastRun() (domain.RunReport, bool) {
	p := r.last.Load()
	if p == nil {
		return domain.RunReport{}, false
	}
	return *p, true
}

// Run reconciles every task. A failing task is logged and reported but does
// not stop the others. Cancelling ctx stops scheduling new tasks and months.
// Task reports are returned in task order; tasks never started are omitted.
func (r *Runner) Run(ctx context.Context, tasks []Task) (domain.RunReport, []domain.TaskReport, error) {
	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)
	run := domain.RunReport{RunID: runID, StartedAt: domain.Now(), ByStatus: make(map[domain.TaskStatus]int)}

	r.logger.Info("reconciliation run started", "run_id", runID, "tasks", len(tasks), "workers", r.workers)
	r.metrics.RunInProgress.Set(1)
	defer r.metrics.RunInProgress.Set(0)

	reports := make([]*domain.TaskReport, len(tasks))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, task := range tasks {
		if ctx.Err() != nil {
			run.Interrupted = true
			break
		}
		g.Go(func() error {
			rep := r.runTask(ctx, task)
			reports[i] = &rep
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.TaskReport, 0, len(tasks))
	var failed int
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		run.Add(*rep)
		if rep.Status == domain.StatusFailed {
			failed++
		}
		out = append(out, *rep)
	}
	if ctx.Err() != nil {
		run.Interrupted = true
	}
	run.FinishedAt = domain.Now()
	r.last.Store(&run)

	r.logger.Info("reconciliation run finished",
		"run_id", runID,
		"tasks", run.Tasks,
		"complete", run.ByStatus[domain.StatusComplete],
		"updated", run.ByStatus[domain.StatusUpdated],
		"no_new_data", run.ByStatus[domain.StatusNoNewData],
		"failed", run.ByStatus[domain.StatusFailed],
		"extracted", run.Extracted,
		"skipped", run.Skipped,
		"interrupted", run.Interrupted,
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)
	if err := r.notifier.NotifyRun(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Warn("notify run report", "run_id", runID, "error", err)
	}

	if failed > 0 {
		return run, out, fmt.Errorf("%d of %d tasks: %w", failed, run.Tasks, ErrTasksFailed)
	}
	return run, out, nil
}

func (r *Runner) runTask(ctx context.Context, task Task) domain.TaskReport {
	start := time.Now()
	rep, err := r.reconciler.Reconcile(ctx, task.Region, task.Source)
	r.metrics.TaskDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.logger.Error("reconciliation task failed",
			"region", task.Region.Code, "source", task.Source.Key, "error", err)
		rep.Status = domain.StatusFailed
	}
	r.metrics.Tasks.WithLabelValues(string(rep.Status)).Inc()
	r.ready.Store(true)

	if err := r.notifier.NotifyTask(context.WithoutCancel(ctx), rep); err != nil {
		r.logger.Warn("notify task report",
			"region", task.Region.Code, "source", task.Source.Key, "error", err)
	}
	return rep
}
