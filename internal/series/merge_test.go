package series

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

func month(y int, m time.Month) domain.Month { return domain.NewMonth(y, m) }

func rec(m domain.Month, kv ...any) domain.Record {
	r := domain.Record{Month: m, Values: map[string]float64{}}
	for i := 0; i < len(kv); i += 2 {
		r.Values[kv[i].(string)] = kv[i+1].(float64)
	}
	return r
}

var nanEqual = cmpopts.EquateNaNs()

func TestMissingPeriods_SingleMonthPresent(t *testing.T) {
	expected, err := domain.ParseMonthRange("2001-01..2003-12")
	require.NoError(t, err)
	a := &domain.Archive{Records: []domain.Record{rec(month(2002, time.June), "tp", 1.0)}}

	missing := MissingPeriods(a, expected)

	require.Len(t, missing, 35)
	assert.Equal(t, month(2001, time.January), missing[0])
	assert.Equal(t, month(2003, time.December), missing[34])
	assert.NotContains(t, missing, month(2002, time.June))
	for i := 1; i < len(missing); i++ {
		assert.Less(t, missing[i-1], missing[i], "ascending")
	}
}

func TestMissingPeriods_NilAndComplete(t *testing.T) {
	r := domain.MonthRange{Start: month(2015, time.January), End: month(2015, time.March)}
	assert.Len(t, MissingPeriods(nil, r), 3)

	full := &domain.Archive{Records: []domain.Record{
		rec(month(2015, time.January)), rec(month(2015, time.February)), rec(month(2015, time.March)),
		rec(month(2016, time.January)),
	}}
	assert.Empty(t, MissingPeriods(full, r), "months outside the range are ignored")
}

func TestMerge_Policies(t *testing.T) {
	jan, feb, mar := month(2030, time.January), month(2030, time.February), month(2030, time.March)
	archive := &domain.Archive{
		Region:  "kolapen",
		Source:  "access_ssp126_fwi_2015_2100",
		Columns: []string{"FWI"},
		Records: []domain.Record{rec(jan, "FWI", 1.0), rec(mar, "FWI", 3.0)},
	}
	incoming := []domain.Record{rec(mar, "FWI", 30.0), rec(feb, "FWI", 2.0)}

	tests := []struct {
		name   string
		policy domain.DuplicatePolicy
		want   []float64
	}{
		{"keep first keeps archived value", domain.KeepFirst, []float64{1, 2, 3}},
		{"keep last takes new value", domain.KeepLast, []float64{1, 2, 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(archive, incoming, tt.policy)

			require.Len(t, got.Records, 3)
			assert.True(t, got.IsSorted())
			var vals []float64
			for _, r := range got.Records {
				vals = append(vals, r.Value("FWI"))
			}
			assert.Equal(t, tt.want, vals)
			assert.Equal(t, "kolapen", got.Region)
			assert.Equal(t, []string{"FWI"}, got.Columns)
		})
	}
}

func TestMerge_DuplicatesWithinIncoming(t *testing.T) {
	m := month(2040, time.May)
	incoming := []domain.Record{rec(m, "tp", 1.0), rec(m, "tp", 2.0), rec(m, "tp", 3.0)}

	first := Merge(nil, incoming, domain.KeepFirst)
	last := Merge(nil, incoming, domain.KeepLast)

	require.Len(t, first.Records, 1)
	require.Len(t, last.Records, 1)
	assert.Equal(t, 1.0, first.Records[0].Value("tp"))
	assert.Equal(t, 3.0, last.Records[0].Value("tp"))
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	jan := month(2001, time.January)
	archive := &domain.Archive{Columns: []string{"rh"}, Records: []domain.Record{rec(jan, "rh", 50.0)}}
	incoming := []domain.Record{rec(jan, "rh", 60.0)}

	got := Merge(archive, incoming, domain.KeepLast)
	got.Records[0].Values["rh"] = 0

	assert.Equal(t, 50.0, archive.Records[0].Value("rh"))
	assert.Equal(t, 60.0, incoming[0].Value("rh"))
}

func TestMerge_ColumnUnion(t *testing.T) {
	archive := &domain.Archive{
		Columns: []string{"t2m", "rh"},
		Records: []domain.Record{rec(month(2001, time.January), "t2m", 270.0, "rh", 80.0)},
	}
	incoming := []domain.Record{rec(month(2001, time.February), "t2m", 271.0, "wsp", 3.0, "mn2t", 260.0)}

	got := Merge(archive, incoming, domain.KeepFirst)

	assert.Equal(t, []string{"t2m", "rh", "mn2t", "wsp"}, got.Columns)
	assert.True(t, math.IsNaN(got.Records[0].Value("wsp")))
}

func TestMerge_MissingValuesSurvive(t *testing.T) {
	m := month(2050, time.August)
	got := Merge(nil, []domain.Record{rec(m, "FWI", math.NaN())}, domain.KeepFirst)

	want := []domain.Record{rec(m, "FWI", math.NaN())}
	if diff := cmp.Diff(want, got.Records, nanEqual); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}
