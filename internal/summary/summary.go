// Package summary turns per-region archives into comparable statistics.
//
// For each variable the observed series defines a baseline, the mean over
// the historical window, taken before any correction. Each model series is
// bias-corrected with a monthly climatology offset: over the overlap window,
// the mean of (observed - model) per calendar month. The offset for a month
// is added to every model value in that calendar month; the observed series
// is never corrected. Period means are then taken per window and compared to
// the baseline:
//
//	percent_change = (period_mean - baseline) / baseline * 100
//
// Missing values (NaN) are skipped by every mean. A calendar month without a
// single valid (observed, model) pair gets a NaN offset, which propagates to
// the corrected values and their means. A zero or missing baseline yields
// NaN or ±Inf percent changes; both are reported as they are.
package summary

import (
	"math"
	"time"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

// HistoricalPeriod labels the baseline window in output rows.
const HistoricalPeriod = "historical"

// Windows are the aggregation periods.
type Windows struct {
	Historical domain.MonthRange
	Overlap    domain.MonthRange
	Future     []domain.Window
}

// Series is one labelled input column source, e.g. "ACCESS_SSP126".
type Series struct {
	Label   string
	Archive *domain.Archive
}

// Group is the input for one variable set: the observed archive and the
// model archives, in output order.
type Group struct {
	Variables []string
	Observed  *domain.Archive
	Models    []Series
}

// Row is one line of the summary table. HasPercentChange and HasMean tell an
// absent value apart from a computed NaN.
type Row struct {
	Region           string
	Variable         string
	Model            string
	Period           string
	PercentChange    float64
	HasPercentChange bool
	MeanValue        float64
	HasMean          bool
}

// Options tune the row set.
type Options struct {
	// PercentChangeOnly keeps only rows that carry a percent change, i.e.
	// the model/future rows and the observed identity row.
	PercentChangeOnly bool
}

// Offsets holds one correction per calendar month; index 0 is January.
type Offsets [12]float64

// At returns the offset for m's calendar month.
func (o Offsets) At(m domain.Month) float64 { return o[m.Calendar()-time.January] }

// Result is the summary of one region.
type Result struct {
	Rows []Row
	// Skipped lists variables the observed archive does not carry.
	Skipped []string
	// Degenerate lists variables whose baseline is zero or missing.
	Degenerate []string
}

// Summarize computes the summary rows for one region.
func Summarize(region string, groups []Group, w Windows, opts Options) Result {
	var res Result
	for _, g := range groups {
		for _, variable := range g.Variables {
			if g.Observed == nil || !g.Observed.HasColumn(variable) {
				res.Skipped = append(res.Skipped, variable)
				continue
			}
			rows, baseline := summarizeVariable(region, variable, g, w, opts)
			if Degenerate(baseline) {
				res.Degenerate = append(res.Degenerate, variable)
			}
			res.Rows = append(res.Rows, rows...)
		}
	}
	return res
}

// Point is one month's value.
type Point struct {
	Month domain.Month
	Value float64
}

// Points is a series in ascending month order.
type Points []Point

// PointsOf extracts one variable from an archive. The archive is expected to
// be sorted, as loaded archives are.
func PointsOf(a *domain.Archive, variable string) Points {
	out := make(Points, len(a.Records))
	for i, r := range a.Records {
		out[i] = Point{Month: r.Month, Value: r.Value(variable)}
	}
	return out
}

// column is one source's values for one variable.
type column struct {
	label  string
	values Points
}

func summarizeVariable(region, variable string, g Group, w Windows, opts Options) ([]Row, float64) {
	observed := PointsOf(g.Observed, variable)
	baseline := Baseline(observed, w.Historical)

	cols := []column{{label: domain.ObservedLabel, values: observed}}
	for _, m := range g.Models {
		if m.Archive == nil || !m.Archive.HasColumn(variable) {
			continue
		}
		raw := PointsOf(m.Archive, variable)
		cols = append(cols, column{
			label:  m.Label,
			values: Correct(raw, MonthlyOffsets(observed, raw, w.Overlap)),
		})
	}

	periods := make([]domain.Window, 0, len(w.Future)+1)
	periods = append(periods, domain.Window{Label: HistoricalPeriod, Range: w.Historical})
	periods = append(periods, w.Future...)

	var rows []Row
	for i, c := range cols {
		isObserved := i == 0
		for j, p := range periods {
			isFuture := j > 0
			row := Row{Region: region, Variable: variable, Model: c.label, Period: p.Label}

			if covers(c.values, p.Range) {
				row.MeanValue = PeriodMean(c.values, p.Range)
				row.HasMean = true
			}
			switch {
			case isObserved && !isFuture:
				row.PercentChange = 0
				row.HasPercentChange = true
			case !isObserved && isFuture:
				mean := row.MeanValue
				if !row.HasMean {
					mean = math.NaN()
				}
				row.PercentChange = PercentChange(mean, baseline)
				row.HasPercentChange = true
			}

			if !row.HasMean && !row.HasPercentChange {
				continue
			}
			if opts.PercentChangeOnly && !row.HasPercentChange {
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows, baseline
}

// Baseline is the NaN-skipping mean of the raw observed series over the
// historical window.
func Baseline(observed Points, historical domain.MonthRange) float64 {
	return PeriodMean(observed, historical)
}

// MonthlyOffsets returns, per calendar month, the mean of observed - model
// over the months of the overlap window where both are present.
func MonthlyOffsets(observed, model Points, overlap domain.MonthRange) Offsets {
	obs := make(map[domain.Month]float64, len(observed))
	for _, p := range observed {
		obs[p.Month] = p.Value
	}
	var sum, n [12]float64
	for _, p := range model {
		if !overlap.Contains(p.Month) {
			continue
		}
		ov, ok := obs[p.Month]
		if !ok || math.IsNaN(ov) || math.IsNaN(p.Value) {
			continue
		}
		k := p.Month.Calendar() - time.January
		sum[k] += ov - p.Value
		n[k]++
	}
	var out Offsets
	for k := range out {
		if n[k] == 0 {
			out[k] = math.NaN()
			continue
		}
		out[k] = sum[k] / n[k]
	}
	return out
}

// Correct adds the calendar-month offset to every value of a model series.
func Correct(model Points, offsets Offsets) Points {
	out := make(Points, len(model))
	for i, p := range model {
		out[i] = Point{Month: p.Month, Value: p.Value + offsets.At(p.Month)}
	}
	return out
}

// PeriodMean is the NaN-skipping mean of the values inside r, or NaN when
// none are valid.
func PeriodMean(values Points, r domain.MonthRange) float64 {
	var sum float64
	var n int
	for _, p := range values {
		if !r.Contains(p.Month) || math.IsNaN(p.Value) {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// PercentChange is (mean - baseline) / baseline * 100. A zero baseline gives
// ±Inf, or NaN when mean is also zero.
func PercentChange(mean, baseline float64) float64 {
	return (mean - baseline) / baseline * 100
}

// Degenerate reports whether a baseline makes percent changes meaningless.
func Degenerate(baseline float64) bool {
	return math.IsNaN(baseline) || math.Abs(baseline) < 1e-12
}

// covers reports whether any timestamp of the series falls inside r.
func covers(values Points, r domain.MonthRange) bool {
	for _, p := range values {
		if r.Contains(p.Month) {
			return true
		}
	}
	return false
}
