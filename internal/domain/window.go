package domain

// Window is a labelled aggregation period, e.g. "2025_2050".
type Window struct {
	Label string
	Range MonthRange
}
