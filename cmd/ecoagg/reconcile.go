package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/http"
	kafkaadapter "github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/kafka"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/ledger"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/raster"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/pipeline"
)

var flagSummarizeAfter bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fetch the months each archive lacks and merge them in",
	Long: `reconcile compares every (region, source) archive against the source's
expected month range, extracts only the missing months from the raster
service, merges them with the source's duplicate policy and rewrites the
archive. Months that fail are skipped and retried on the next run.

Exits non-zero when any task failed; the other tasks still run.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&flagSummarizeAfter, "summarize", false, "write summary tables for the selected regions after reconciling")
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	if a.cfg.RasterEndpoint == "" {
		return errors.New("RASTER_ENDPOINT is required for reconcile")
	}
	filter, err := a.filter()
	if err != nil {
		return err
	}
	logger := a.logger

	client := raster.NewClient(a.cfg.RasterEndpoint, a.cfg.RasterToken, a.cfg.RasterTimeout, a.cfg.RasterMaxRetries, a.metrics, logger)
	var source raster.Source = client
	if a.cfg.RasterCacheSize > 0 {
		source = raster.NewCachedSource(client, a.cfg.RasterCacheSize, a.metrics)
	}
	extractor := pipeline.NewRasterExtractor(source, pipeline.ExtractSettings{
		Collection: a.plan.Raster.GeometryCollection,
		Reducer:    a.plan.Raster.Reducer,
		Scale:      a.plan.Raster.Scale,
		MaxPixels:  a.plan.Raster.MaxPixels,
		FillValue:  a.plan.Raster.FillValue,
	}, logger)

	var failures pipeline.FailureRecorder
	led, err := ledger.Open(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open failure ledger: %w", err)
	}
	if led != nil {
		defer func() {
			if err := led.Close(); err != nil {
				logger.Error("ledger close error", "error", err)
			}
		}()
		failures = led
		logger.Info("failure ledger enabled", "driver", a.cfg.LedgerDriver)
	}

	var notifier pipeline.Notifier
	if a.cfg.KafkaEnabled {
		kn := kafkaadapter.NewNotifier(a.cfg, logger)
		defer func() {
			if err := kn.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = kn
		logger.Info("kafka notifications enabled", "topic", a.cfg.KafkaTopic)
	}

	rec := pipeline.NewReconciler(a.store, extractor, failures, a.metrics, logger)
	runner := pipeline.NewRunner(rec, notifier, a.cfg.Workers, a.metrics, logger)

	if a.cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(a.cfg.HTTPAddr, runner, runner, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	tasks := pipeline.Tasks(a.plan.Catalog, a.plan.Sources, filter)
	if len(tasks) == 0 {
		return errors.New("no tasks match the filter")
	}
	run, _, runErr := runner.Run(ctx, tasks)
	if run.Interrupted {
		logger.Warn("run interrupted, completed months were persisted", "run_id", run.RunID)
		return errors.Join(runErr, ctx.Err())
	}

	if flagSummarizeAfter {
		if err := summarizeRegions(ctx, a, a.regionCodes(filter), false); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}
