package summary_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/archive"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/config"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/observability"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/series"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/summary"
)

func persist(t *testing.T, store *series.Store, region, source, variable, rng string, v float64) {
	t.Helper()
	r, err := domain.ParseMonthRange(rng)
	require.NoError(t, err)
	a := &domain.Archive{Region: region, Source: source, Columns: []string{variable}}
	for _, m := range r.Months() {
		a.Records = append(a.Records, domain.Record{Month: m, Values: map[string]float64{variable: v}})
	}
	require.NoError(t, store.Persist(context.Background(), a))
}

func TestSummarizer_Run(t *testing.T) {
	plan, err := config.LoadPlan("")
	require.NoError(t, err)
	groups, err := summary.GroupsFromPlan(plan)
	require.NoError(t, err)

	objects := archive.NewMemory()
	store := series.NewStore(objects)
	persist(t, store, "kolapen", "cems_2001_2023", "FWI", "2001-01..2023-12", 10)
	persist(t, store, "kolapen", "access_ssp126_fwi_2015_2100", "FWI", "2015-01..2100-12", 11)

	metrics := observability.NewMetricsForTesting()
	s := summary.NewSummarizer(store, objects, groups, summary.WindowsFromPlan(plan), summary.Options{PercentChangeOnly: true},
		metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := s.Run(context.Background(), "kolapen")
	require.NoError(t, err)
	assert.Contains(t, res.Skipped, "rh", "no climate archives were written")

	data, err := objects.Get(context.Background(), summary.Key("kolapen"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "region,variable,model,period,percent_change,mean_value", lines[0])
	assert.Equal(t, "kolapen,FWI,Observed,historical,0,10", lines[1])
	assert.Equal(t, "kolapen,FWI,ACCESS_SSP126,2025_2050,0,10", lines[2])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SummariesWritten))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.SummaryRows))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.DegenerateBase))
}

func TestSummarizer_CorruptArchive(t *testing.T) {
	objects := archive.NewMemory()
	require.NoError(t, objects.Put(context.Background(), series.Key("kolapen", "cems_2001_2023"), []byte("garbage\n1,2\n")))

	groups := []summary.GroupSpec{{Variables: []string{"FWI"}, Observed: "cems_2001_2023"}}
	s := summary.NewSummarizer(series.NewStore(objects), objects, groups, summary.Windows{}, summary.Options{},
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := s.Run(context.Background(), "kolapen")
	require.ErrorIs(t, err, series.ErrArchiveCorrupt)
}

func TestSummarizer_RepeatedMonthsCountOnce(t *testing.T) {
	objects := archive.NewMemory()
	require.NoError(t, objects.Put(context.Background(), series.Key("kolapen", "cems_2001_2023"),
		[]byte("date,FWI\n2001-01-01,10\n2001-01-01,10\n2001-02-01,40\n")))

	groups := []summary.GroupSpec{{Variables: []string{"FWI"}, Observed: "cems_2001_2023", ObservedPolicy: domain.KeepFirst}}
	w := summary.Windows{Historical: domain.MonthRange{Start: domain.NewMonth(2001, time.January), End: domain.NewMonth(2001, time.December)}}
	s := summary.NewSummarizer(series.NewStore(objects), objects, groups, w, summary.Options{},
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := s.Run(context.Background(), "kolapen")
	require.NoError(t, err)
	require.NotEmpty(t, res.Rows)
	assert.Equal(t, domain.ObservedLabel, res.Rows[0].Model)
	assert.Equal(t, summary.HistoricalPeriod, res.Rows[0].Period)
	require.True(t, res.Rows[0].HasMean)
	assert.Equal(t, 25.0, res.Rows[0].MeanValue)
}

func TestGroupsFromPlan(t *testing.T) {
	plan, err := config.LoadPlan("")
	require.NoError(t, err)
	groups, err := summary.GroupsFromPlan(plan)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "e5l_2001_2023", groups[0].Observed)
	assert.Equal(t, "cems_2001_2023", groups[1].Observed)
	require.Len(t, groups[1].Models, 6)
	assert.Equal(t, domain.KeepFirst, groups[1].ObservedPolicy)
	assert.Equal(t, summary.SeriesSpec{
		Label:  "ACCESS_SSP126",
		Source: "access_ssp126_fwi_2015_2100",
		Policy: domain.KeepLast,
	}, groups[1].Models[0])
}
