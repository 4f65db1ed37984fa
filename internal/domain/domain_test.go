package domain

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFilePattern = "gs://bucket/CMIP6_files/{model_long}_COG/{SCENARIO}/{model_long}_{scenario}_{year}_{month}_all_cog.tif"

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Month
		wantErr bool
	}{
		{"year-month", "2002-06", NewMonth(2002, time.June), false},
		{"first of month", "2015-01-01", NewMonth(2015, time.January), false},
		{"padded", " 2100-12 ", NewMonth(2100, time.December), false},
		{"mid month", "2015-01-15", 0, true},
		{"garbage", "june", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonth_Calendar(t *testing.T) {
	m := NewMonth(2024, time.February)
	assert.Equal(t, 2024, m.Year())
	assert.Equal(t, time.February, m.Calendar())
	assert.Equal(t, 29, m.Days())
	assert.Equal(t, "2024-02-01", m.Date())
	assert.Equal(t, "2024-02", m.String())
	assert.Equal(t, NewMonth(2024, time.March), m+1)
	assert.Equal(t, NewMonth(2023, time.December), NewMonth(2024, time.January)-1)
}

func TestMonthRange(t *testing.T) {
	r, err := ParseMonthRange("2001-01..2003-12")
	require.NoError(t, err)
	assert.Equal(t, 36, r.Len())

	months := r.Months()
	require.Len(t, months, 36)
	assert.Equal(t, "2001-01", months[0].String())
	assert.Equal(t, "2003-12", months[35].String())
	assert.True(t, r.Contains(NewMonth(2002, time.June)))
	assert.False(t, r.Contains(NewMonth(2004, time.January)))

	_, err = ParseMonthRange("2003-01..2001-01")
	require.Error(t, err)
	_, err = ParseMonthRange("2003-01")
	require.Error(t, err)
}

func TestPostprocess_ClimatePrecipitation(t *testing.T) {
	june := NewMonth(2030, time.June) // 30 days
	vals := map[string]float64{VarPrecipitation: 10.0, "t2m": 270.5}

	Postprocess(PostprocessClimate, june, vals)

	assert.InDelta(t, 25920.0, vals[VarPrecipitation], 1e-9)
	assert.Equal(t, 270.5, vals["t2m"], "non-precipitation bands are untouched")
}

func TestPostprocess_MissingStaysMissing(t *testing.T) {
	june := NewMonth(2030, time.June)
	vals := map[string]float64{VarPrecipitation: math.NaN()}

	Postprocess(PostprocessClimate, june, vals)

	assert.True(t, IsMissing(vals[VarPrecipitation]))
	_, added := vals[VarSolarRadiance]
	assert.False(t, added, "absent bands are not introduced")
}

func TestPostprocess_ObservedInputs(t *testing.T) {
	feb := NewMonth(2001, time.February) // 28 days
	seconds := 28.0 * 86400
	vals := map[string]float64{
		VarPrecipitation:   0.002,
		VarThermalRadiance: 7.0e8,
		VarSolarRadiance:   math.NaN(),
	}

	Postprocess(PostprocessObservedInputs, feb, vals)

	assert.InDelta(t, 0.002*seconds, vals[VarPrecipitation], 1e-9)
	assert.InDelta(t, 7.0e8/seconds, vals[VarThermalRadiance], 1e-9)
	assert.True(t, IsMissing(vals[VarSolarRadiance]))
}

func TestPostprocess_NoneIsIdentity(t *testing.T) {
	vals := map[string]float64{"FWI": 12.5, VarPrecipitation: 3}
	Postprocess(PostprocessNone, NewMonth(2050, time.July), vals)
	assert.Equal(t, map[string]float64{"FWI": 12.5, VarPrecipitation: 3}, vals)
}

func TestSource_FileIDAndVariables(t *testing.T) {
	src := Source{
		Key:         "access_ssp126_climate_2015_2100",
		Domain:      DomainModel,
		Model:       "access",
		ModelLong:   "ACCESS-CM2",
		Scenario:    "ssp126",
		VariableSet: VariableSetClimate,
		Range:       MonthRange{Start: NewMonth(2015, time.January), End: NewMonth(2100, time.December)},
		FilePattern: testFilePattern,
		Bands:       []string{"B0", "B2"},
		Rename:      map[string]string{"B0": "rh", "B2": "tp"},
		Postprocess: PostprocessClimate,
		Policy:      KeepFirst,
	}

	require.NoError(t, src.Validate())
	assert.Equal(t,
		"gs://bucket/CMIP6_files/ACCESS-CM2_COG/SSP126/ACCESS-CM2_ssp126_2015_3_all_cog.tif",
		src.FileID(NewMonth(2015, time.March)))
	assert.Equal(t, []string{"rh", "tp"}, src.Variables())
}

func TestSource_Validate(t *testing.T) {
	valid := Source{
		Key:         "e5l_2001_2023",
		Domain:      DomainObserved,
		VariableSet: VariableSetClimate,
		Range:       MonthRange{Start: NewMonth(2001, time.January), End: NewMonth(2023, time.November)},
		FilePattern: "gs://bucket/cems_e5l_mcd_{year}_{month}.tif",
		Bands:       []string{"temperature_2m"},
		Postprocess: PostprocessObservedInputs,
		Policy:      KeepFirst,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Source)
		errMsg string
	}{
		{"missing key", func(s *Source) { s.Key = "" }, "key"},
		{"bad domain", func(s *Source) { s.Domain = "reanalysis" }, "domain"},
		{"bad policy", func(s *Source) { s.Policy = "newest" }, "policy"},
		{"bad variable set", func(s *Source) { s.VariableSet = "soil" }, "variable set"},
		{"no bands", func(s *Source) { s.Bands = nil }, "bands"},
		{"colliding rename", func(s *Source) {
			s.Bands = []string{"a", "b"}
			s.Rename = map[string]string{"a": "x", "b": "x"}
		}, "twice"},
		{"empty range", func(s *Source) { s.Range = MonthRange{Start: 10, End: 5} }, "range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDefaultPolicyAndLabel(t *testing.T) {
	assert.Equal(t, KeepFirst, DefaultPolicy(DomainObserved, VariableSetFWI))
	assert.Equal(t, KeepFirst, DefaultPolicy(DomainModel, VariableSetClimate))
	assert.Equal(t, KeepLast, DefaultPolicy(DomainModel, VariableSetFWI))

	assert.Equal(t, ObservedLabel, DefaultLabel(DomainObserved, "", ""))
	assert.Equal(t, "MRI_SSP245", DefaultLabel(DomainModel, "mri", "ssp245"))
	assert.Equal(t, "ACCESS", DefaultLabel(DomainModel, "access", ""))
}

func TestCatalog(t *testing.T) {
	c, err := NewCatalog([]Region{
		{Code: "alaspen", Name: "Alaska Peninsula montane taiga"},
		{Code: "mid-bor", Name: "Mid-Canada Boreal Plains forests"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	r, ok := c.Lookup("mid-bor")
	require.True(t, ok)
	assert.Equal(t, "Mid-Canada Boreal Plains forests", r.GeometryRef())

	_, err = NewCatalog([]Region{{Code: "a1", Name: "x"}, {Code: "a1", Name: "y"}})
	require.Error(t, err)
	_, err = NewCatalog([]Region{{Code: "Bad Code", Name: "x"}})
	require.Error(t, err)
}

func TestArchive_IsSorted(t *testing.T) {
	a := &Archive{Records: []Record{{Month: 1}, {Month: 2}, {Month: 5}}}
	assert.True(t, a.IsSorted())

	a.Records = append(a.Records, Record{Month: 5})
	assert.False(t, a.IsSorted(), "duplicates are not strictly increasing")
}

func TestNow_UsesInjectedClock(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC), Now())
}
