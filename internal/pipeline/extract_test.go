package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/raster"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/pipeline"
)

type fakeRaster struct {
	result  raster.Result
	err     error
	queries []raster.Query
}

func (f *fakeRaster) Reduce(_ context.Context, q raster.Query) (raster.Result, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.result.Clone(), nil
}

func ptr(v float64) *float64 { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var kola = domain.Region{Code: "kolapen", Name: "Kola Peninsula tundra"}

func climateSource() domain.Source {
	return domain.Source{
		Key:         "access_ssp126_climate_2015_2100",
		Label:       "ACCESS_SSP126",
		Domain:      domain.DomainModel,
		Model:       "access",
		ModelLong:   "ACCESS-CM2",
		Scenario:    "ssp126",
		VariableSet: domain.VariableSetClimate,
		Range:       domain.MonthRange{Start: domain.NewMonth(2015, time.January), End: domain.NewMonth(2100, time.December)},
		FilePattern: "gs://b/CMIP6_files/{model_long}_COG/{SCENARIO}/{model_long}_{scenario}_{year}_{month}_all_cog.tif",
		Bands:       []string{"B0", "B2", "B6"},
		Rename:      map[string]string{"B0": "rh", "B2": "tp", "B6": "t2m"},
		Postprocess: domain.PostprocessClimate,
		Mask:        &domain.Mask{File: "gs://b/mask.tif", Band: "aspect"},
		Policy:      domain.KeepFirst,
	}
}

func testSettings() pipeline.ExtractSettings {
	return pipeline.ExtractSettings{
		Collection: "RESOLVE/ECOREGIONS/2017",
		Scale:      4000,
		MaxPixels:  1e8,
		FillValue:  -9999,
	}
}

func TestRasterExtractor_BuildsQuery(t *testing.T) {
	src := &fakeRaster{result: raster.Result{"B0": ptr(80), "B2": ptr(10), "B6": ptr(270)}}
	ex := pipeline.NewRasterExtractor(src, testSettings(), discardLogger())

	_, err := ex.Extract(context.Background(), kola, climateSource(), domain.NewMonth(2030, time.June))
	require.NoError(t, err)

	require.Len(t, src.queries, 1)
	q := src.queries[0]
	assert.Equal(t, "gs://b/CMIP6_files/ACCESS-CM2_COG/SSP126/ACCESS-CM2_ssp126_2030_6_all_cog.tif", q.File)
	assert.Equal(t, raster.Geometry{Collection: "RESOLVE/ECOREGIONS/2017", Property: "ECO_NAME", Value: "Kola Peninsula tundra"}, q.Geometry)
	assert.Equal(t, []string{"B0", "B2", "B6"}, q.Bands)
	assert.Equal(t, "mean", q.Reducer)
	assert.Equal(t, 4000.0, q.Scale)
	assert.Equal(t, 1e8, q.MaxPixels)
	assert.Equal(t, -9999.0, q.FillValue)
	assert.Equal(t, &raster.Mask{File: "gs://b/mask.tif", Band: "aspect"}, q.Mask)
}

func TestRasterExtractor_RenamesAndPostprocesses(t *testing.T) {
	src := &fakeRaster{result: raster.Result{"B0": ptr(80), "B2": ptr(10), "B6": ptr(270)}}
	ex := pipeline.NewRasterExtractor(src, testSettings(), discardLogger())

	got, err := ex.Extract(context.Background(), kola, climateSource(), domain.NewMonth(2030, time.June))
	require.NoError(t, err)

	assert.Equal(t, domain.NewMonth(2030, time.June), got.Month)
	assert.Equal(t, 80.0, got.Value("rh"))
	assert.InDelta(t, 25920.0, got.Value("tp"), 1e-9)
	assert.Equal(t, 270.0, got.Value("t2m"))
	assert.Len(t, got.Values, 3)
}

func TestRasterExtractor_MissingBandsStayMissing(t *testing.T) {
	src := &fakeRaster{result: raster.Result{"B0": nil, "B2": ptr(-9999)}}
	ex := pipeline.NewRasterExtractor(src, testSettings(), discardLogger())

	got, err := ex.Extract(context.Background(), kola, climateSource(), domain.NewMonth(2030, time.June))
	require.NoError(t, err)

	assert.True(t, math.IsNaN(got.Value("rh")), "null band")
	assert.True(t, math.IsNaN(got.Value("tp")), "fill value is not data")
	assert.True(t, math.IsNaN(got.Value("t2m")), "absent band")
	assert.Len(t, got.Values, 3)
}

func TestRasterExtractor_ZeroIsData(t *testing.T) {
	settings := testSettings()
	settings.FillValue = 0
	src := &fakeRaster{result: raster.Result{"B0": ptr(0), "B2": ptr(0), "B6": ptr(0)}}
	ex := pipeline.NewRasterExtractor(src, settings, discardLogger())

	got, err := ex.Extract(context.Background(), kola, climateSource(), domain.NewMonth(2030, time.June))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Value("tp"))
}

func TestRasterExtractor_ErrorIsExtractionFailure(t *testing.T) {
	cause := errors.New("file not found")
	ex := pipeline.NewRasterExtractor(&fakeRaster{err: cause}, testSettings(), discardLogger())

	_, err := ex.Extract(context.Background(), kola, climateSource(), domain.NewMonth(2030, time.June))
	require.ErrorIs(t, err, domain.ErrExtraction)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "kolapen/access_ssp126_climate_2015_2100 2030-06")
}
