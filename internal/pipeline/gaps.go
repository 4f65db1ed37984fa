package pipeline

import (
	"context"
	"fmt"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/series"
)

// Gap lists the months one archive lacks.
type Gap struct {
	Region  string
	Source  string
	Rows    int
	Missing []domain.Month
	// Err is set when the archive could not be loaded; Rows and Missing
	// are then empty.
	Err error
}

// FindGaps reports missing months per task without fetching anything. An
// archive that fails to load is reported on its own Gap and the scan goes
// on; only cancellation stops it early.
func FindGaps(ctx context.Context, store ArchiveStore, tasks []Task) ([]Gap, error) {
	gaps := make([]Gap, 0, len(tasks))
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return gaps, err
		}
		g := Gap{Region: t.Region.Code, Source: t.Source.Key}
		a, err := store.Load(ctx, t.Region.Code, t.Source.Key)
		if err != nil {
			g.Err = fmt.Errorf("gaps %s/%s: %w", t.Region.Code, t.Source.Key, err)
			gaps = append(gaps, g)
			continue
		}
		g.Rows = a.Len()
		g.Missing = series.MissingPeriods(a, t.Source.Range)
		gaps = append(gaps, g)
	}
	return gaps, nil
}

// Ranges collapses sorted months into contiguous spans, e.g. for display.
func Ranges(months []domain.Month) []domain.MonthRange {
	var out []domain.MonthRange
	for _, m := range months {
		if n := len(out); n > 0 && out[n-1].End+1 == m {
			out[n-1].End = m
			continue
		}
		out = append(out, domain.MonthRange{Start: m, End: m})
	}
	return out
}
