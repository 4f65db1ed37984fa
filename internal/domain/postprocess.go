package domain

const secondsPerDay = 24 * 60 * 60

// Canonical variable names touched by postprocessing.
const (
	VarPrecipitation   = "tp"
	VarThermalRadiance = "rlds"
	VarSolarRadiance   = "rsds"
)

// Postprocess converts raw band means for one month into output units.
// vals is keyed by output variable name and modified in place. Missing
// values are left untouched.
//
//   - climate: precipitation rate (kg m-2 s-1) to a monthly total,
//     tp * days * 86400 * 0.001.
//   - observed-inputs: ERA5-Land accumulations. Radiation sums are divided by
//     the seconds in the month; precipitation is multiplied by them.
//   - none: rename only.
func Postprocess(kind PostprocessKind, m Month, vals map[string]float64) {
	seconds := float64(m.Days() * secondsPerDay)
	scale := func(name string, f func(float64) float64) {
		v, ok := vals[name]
		if !ok || IsMissing(v) {
			return
		}
		vals[name] = f(v)
	}

	switch kind {
	case PostprocessClimate:
		scale(VarPrecipitation, func(v float64) float64 { return v * seconds * 0.001 })
	case PostprocessObservedInputs:
		scale(VarPrecipitation, func(v float64) float64 { return v * seconds })
		scale(VarThermalRadiance, func(v float64) float64 { return v / seconds })
		scale(VarSolarRadiance, func(v float64) float64 { return v / seconds })
	}
}
