package series

import (
	"sort"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

// MissingPeriods returns the months of expected that the archive lacks, in
// ascending order. A nil archive is treated as empty.
func MissingPeriods(a *domain.Archive, expected domain.MonthRange) []domain.Month {
	have := make(map[domain.Month]bool)
	if a != nil {
		for _, r := range a.Records {
			have[r.Month] = true
		}
	}
	var missing []domain.Month
	for _, m := range expected.Months() {
		if !have[m] {
			missing = append(missing, m)
		}
	}
	return missing
}

// Merge concatenates incoming records onto the archive, keeps exactly one
// record per month according to policy, and returns a new archive sorted by
// month. Columns are the archive's columns followed by any variable that only
// the incoming records carry, in name order. Neither input is modified.
func Merge(a *domain.Archive, incoming []domain.Record, policy domain.DuplicatePolicy) *domain.Archive {
	out := &domain.Archive{}
	var existing []domain.Record
	if a != nil {
		out.Region = a.Region
		out.Source = a.Source
		out.Columns = append(out.Columns, a.Columns...)
		existing = a.Records
	}
	out.Columns = appendNewColumns(out.Columns, incoming)

	combined := make([]domain.Record, 0, len(existing)+len(incoming))
	combined = append(combined, existing...)
	combined = append(combined, incoming...)

	index := make(map[domain.Month]int, len(combined))
	kept := make([]domain.Record, 0, len(combined))
	for _, r := range combined {
		i, seen := index[r.Month]
		switch {
		case !seen:
			index[r.Month] = len(kept)
			kept = append(kept, r.Clone())
		case policy == domain.KeepLast:
			kept[i] = r.Clone()
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Month < kept[j].Month })
	out.Records = kept
	return out
}

func appendNewColumns(cols []string, recs []domain.Record) []string {
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	var extra []string
	for _, r := range recs {
		for name := range r.Values {
			if !known[name] {
				known[name] = true
				extra = append(extra, name)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}
