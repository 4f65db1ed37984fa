package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/raster"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

// Extractor fetches one month of one source over one region.
type Extractor interface {
	Extract(ctx context.Context, region domain.Region, source domain.Source, month domain.Month) (domain.Record, error)
}

// ExtractSettings are the reduction parameters shared by every query.
type ExtractSettings struct {
	Collection string // feature collection holding region polygons
	Property   string // feature property matched against the region geometry ref
	Reducer    string
	Scale      float64
	MaxPixels  float64
	FillValue  float64
}

// RasterExtractor implements Extractor on top of a raster.Source.
type RasterExtractor struct {
	raster   raster.Source
	settings ExtractSettings
	logger   *slog.Logger
}

// NewRasterExtractor creates an extractor. A zero Property defaults to
// "ECO_NAME" and a zero Reducer to "mean".
func NewRasterExtractor(src raster.Source, settings ExtractSettings, logger *slog.Logger) *RasterExtractor {
	if settings.Property == "" {
		settings.Property = "ECO_NAME"
	}
	if settings.Reducer == "" {
		settings.Reducer = "mean"
	}
	return &RasterExtractor{raster: src, settings: settings, logger: logger}
}

// Extract reduces the source's file for the month over the region and
// returns a record keyed by output variable name. Bands with no valid pixels
// are NaN. Any service error is wrapped in domain.ErrExtraction.
func (e *RasterExtractor) Extract(ctx context.Context, region domain.Region, source domain.Source, month domain.Month) (domain.Record, error) {
	q := raster.Query{
		File: source.FileID(month),
		Geometry: raster.Geometry{
			Collection: e.settings.Collection,
			Property:   e.settings.Property,
			Value:      region.GeometryRef(),
		},
		Bands:     source.Bands,
		Reducer:   e.settings.Reducer,
		Scale:     e.settings.Scale,
		MaxPixels: e.settings.MaxPixels,
		FillValue: e.settings.FillValue,
	}
	if source.Mask != nil {
		q.Mask = &raster.Mask{File: source.Mask.File, Band: source.Mask.Band}
	}

	result, err := e.raster.Reduce(ctx, q)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %s/%s %s: %w", domain.ErrExtraction, region.Code, source.Key, month, err)
	}

	values := make(map[string]float64, len(source.Bands))
	for _, band := range source.Bands {
		v := domain.Missing()
		if p := result[band]; p != nil && !e.isFill(*p) {
			v = *p
		}
		values[source.VariableName(band)] = v
	}
	domain.Postprocess(source.Postprocess, month, values)

	e.logger.Debug("extracted month",
		"region", region.Code, "source", source.Key, "month", month.String(), "file", q.File)
	return domain.Record{Month: month, Values: values}, nil
}

// isFill reports whether v is the fill value leaking through an unmasked
// pixel. A zero fill value disables the check.
func (e *RasterExtractor) isFill(v float64) bool {
	return e.settings.FillValue != 0 && v == e.settings.FillValue
}
