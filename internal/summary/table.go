package summary

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// Header is the column layout of a summary table.
var Header = []string{"region", "variable", "model", "period", "percent_change", "mean_value"}

// Encode writes rows as CSV. Absent values are empty cells; computed NaN and
// infinities are written as "NaN", "+Inf" and "-Inf".
func Encode(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Region,
			r.Variable,
			r.Model,
			r.Period,
			formatOptional(r.PercentChange, r.HasPercentChange),
			formatOptional(r.MeanValue, r.HasMean),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatOptional(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
