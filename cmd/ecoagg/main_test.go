package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/config"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/pipeline"
)

func TestBuildFilter(t *testing.T) {
	plan, err := config.LoadPlan("")
	require.NoError(t, err)

	f, err := buildFilter(plan, []string{"kolapen"}, []string{"cems_2001_2023"})
	require.NoError(t, err)
	assert.Equal(t, pipeline.Filter{Regions: []string{"kolapen"}, Sources: []string{"cems_2001_2023"}}, f)
	assert.Len(t, pipeline.Tasks(plan.Catalog, plan.Sources, f), 1)

	_, err = buildFilter(plan, []string{"atlantis"}, nil)
	require.ErrorContains(t, err, `unknown region "atlantis"`)
	_, err = buildFilter(plan, nil, []string{"gfdl_ssp585_fwi_2015_2100"})
	require.ErrorContains(t, err, "unknown source")
}

func TestWriteGaps(t *testing.T) {
	m := func(y int, mo time.Month) domain.Month { return domain.NewMonth(y, mo) }
	gaps := []pipeline.Gap{
		{Region: "kolapen", Source: "cems_2001_2023", Rows: 276},
		{Region: "kolapen", Source: "e5l_2001_2023", Rows: 270, Missing: []domain.Month{
			m(2023, time.June), m(2023, time.July), m(2023, time.August), m(2023, time.November),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeGaps(&buf, gaps, false))
	out := buf.String()
	assert.NotContains(t, out, "cems_2001_2023")
	assert.Contains(t, out, "2023-06..2023-08,2023-11")
	assert.Contains(t, out, "1 of 2 archives incomplete")

	buf.Reset()
	require.NoError(t, writeGaps(&buf, gaps, true))
	assert.Contains(t, buf.String(), "cems_2001_2023")
}

func TestWriteGaps_ReportsUnreadableArchives(t *testing.T) {
	gaps := []pipeline.Gap{
		{Region: "kolapen", Source: "cems_2001_2023", Err: errors.New(`archive corrupt: no "date" column`)},
		{Region: "alaspen", Source: "cems_2001_2023", Rows: 3, Missing: []domain.Month{domain.NewMonth(2001, time.April)}},
	}

	var buf bytes.Buffer
	err := writeGaps(&buf, gaps, false)
	require.ErrorContains(t, err, "1 of 2 archives could not be read")
	out := buf.String()
	assert.Contains(t, out, "archive corrupt")
	assert.Contains(t, out, "alaspen")
	assert.Contains(t, out, "1 of 2 archives incomplete")
}

type recordingLister struct {
	queries [][2]string
}

func (l *recordingLister) Failures(_ context.Context, region, source string) ([]domain.ExtractionFailure, error) {
	l.queries = append(l.queries, [2]string{region, source})
	return []domain.ExtractionFailure{{Region: region, Source: source}}, nil
}

func TestListFailures_QueriesEveryPair(t *testing.T) {
	l := &recordingLister{}
	got, err := listFailures(context.Background(), l, pipeline.Filter{
		Regions: []string{"kolapen", "alaspen"},
		Sources: []string{"cems_2001_2023"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"kolapen", "cems_2001_2023"}, {"alaspen", "cems_2001_2023"}}, l.queries)
	assert.Len(t, got, 2)

	l = &recordingLister{}
	_, err = listFailures(context.Background(), l, pipeline.Filter{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"", ""}}, l.queries)
}
