package domain

import (
	"errors"
	"math"
	"sort"
)

// ErrExtraction marks a per-period extraction failure. It is recoverable:
// the period is skipped and a later reconciliation pass retries it.
var ErrExtraction = errors.New("extraction failed")

// Record holds the variable values for one month. Missing values are NaN.
type Record struct {
	Month  Month
	Values map[string]float64
}

// Missing returns the sentinel used for missing values.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing-value sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Value returns the named variable, or NaN if the record lacks it.
func (r Record) Value(name string) float64 {
	v, ok := r.Values[name]
	if !ok {
		return math.NaN()
	}
	return v
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	vals := make(map[string]float64, len(r.Values))
	for k, v := range r.Values {
		vals[k] = v
	}
	return Record{Month: r.Month, Values: vals}
}

// Archive is the time-ordered series for one (region, source) pair.
// Columns fixes the variable order used when the archive is written.
type Archive struct {
	Region  string
	Source  string
	Columns []string
	Records []Record
}

// Months returns the archived months in stored order.
func (a *Archive) Months() []Month {
	out := make([]Month, len(a.Records))
	for i, r := range a.Records {
		out[i] = r.Month
	}
	return out
}

// Len returns the number of records.
func (a *Archive) Len() int { return len(a.Records) }

// Column returns one variable as a month-indexed map. Months where the
// variable is absent map to NaN.
func (a *Archive) Column(name string) map[Month]float64 {
	out := make(map[Month]float64, len(a.Records))
	for _, r := range a.Records {
		out[r.Month] = r.Value(name)
	}
	return out
}

// HasColumn reports whether the archive carries a variable.
func (a *Archive) HasColumn(name string) bool {
	for _, c := range a.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// IsSorted reports whether months are strictly increasing.
func (a *Archive) IsSorted() bool {
	return sort.SliceIsSorted(a.Records, func(i, j int) bool {
		return a.Records[i].Month < a.Records[j].Month
	}) && !hasAdjacentDuplicate(a.Records)
}

func hasAdjacentDuplicate(recs []Record) bool {
	for i := 1; i < len(recs); i++ {
		if recs[i].Month == recs[i-1].Month {
			return true
		}
	}
	return false
}
