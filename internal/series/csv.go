package series

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

// ErrArchiveCorrupt reports a persisted archive that cannot be decoded.
var ErrArchiveCorrupt = errors.New("archive corrupt")

const dateColumn = "date"

// Encode writes an archive as CSV: a "date" column followed by one column
// per variable. Missing values are written as empty cells.
func Encode(a *domain.Archive) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{dateColumn}, a.Columns...)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range a.Records {
		row[0] = r.Month.Date()
		for i, col := range a.Columns {
			row[i+1] = formatValue(r.Value(col))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write %s: %w", r.Month, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses CSV produced by Encode (or found in legacy archives,
// which use the same layout). Any structural problem is reported as
// ErrArchiveCorrupt.
func Decode(data []byte) (*domain.Archive, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrArchiveCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrArchiveCorrupt, err)
	}
	dateIdx := -1
	for i, h := range header {
		if strings.TrimSpace(h) == dateColumn {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("%w: no %q column", ErrArchiveCorrupt, dateColumn)
	}

	a := &domain.Archive{}
	for i, h := range header {
		if i != dateIdx {
			a.Columns = append(a.Columns, strings.TrimSpace(h))
		}
	}

	line := 1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrArchiveCorrupt, line, err)
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: line %d: %d fields, want %d", ErrArchiveCorrupt, line, len(row), len(header))
		}
		m, err := domain.ParseMonth(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrArchiveCorrupt, line, err)
		}
		rec := domain.Record{Month: m, Values: make(map[string]float64, len(a.Columns))}
		col := 0
		for i, cell := range row {
			if i == dateIdx {
				continue
			}
			v, err := parseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %v", ErrArchiveCorrupt, line, a.Columns[col], err)
			}
			rec.Values[a.Columns[col]] = v
			col++
		}
		a.Records = append(a.Records, rec)
	}
	return a, nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
