package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DataDomain distinguishes observational reanalysis from model projections.
type DataDomain string

const (
	DomainObserved DataDomain = "observed"
	DomainModel    DataDomain = "model"
)

// VariableSet selects which raw bands a source carries.
type VariableSet string

const (
	VariableSetClimate VariableSet = "climate"
	VariableSetFWI     VariableSet = "fwi"
)

// DuplicatePolicy decides which record survives when a merge sees the same
// month twice.
type DuplicatePolicy string

const (
	// KeepFirst keeps the record already in the archive.
	KeepFirst DuplicatePolicy = "keep-first"
	// KeepLast keeps the newly extracted record.
	KeepLast DuplicatePolicy = "keep-last"
)

// PostprocessKind names the unit conversion applied after extraction.
type PostprocessKind string

const (
	PostprocessNone PostprocessKind = "none"
	// PostprocessClimate converts a precipitation rate to a monthly total.
	PostprocessClimate PostprocessKind = "climate"
	// PostprocessObservedInputs handles accumulated ERA5-Land fields used as
	// fire-weather inputs.
	PostprocessObservedInputs PostprocessKind = "observed-inputs"
)

// ObservedLabel is the summary column name for the observational source.
const ObservedLabel = "Observed"

// Mask names a raster layer whose valid pixels define the footprint.
type Mask struct {
	File string `yaml:"file" json:"file"`
	Band string `yaml:"band" json:"band"`
}

// Source describes one dataset stream: observed data or one model+scenario
// for one variable set.
type Source struct {
	Key         string            `yaml:"key" json:"key"`
	Label       string            `yaml:"label" json:"label"`
	Domain      DataDomain        `yaml:"domain" json:"domain"`
	Model       string            `yaml:"model" json:"model"`
	ModelLong   string            `yaml:"model_long" json:"model_long"`
	Scenario    string            `yaml:"scenario" json:"scenario"`
	VariableSet VariableSet       `yaml:"variable_set" json:"variable_set"`
	Range       MonthRange        `yaml:"-" json:"-"`
	FilePattern string            `yaml:"file_pattern" json:"file_pattern"`
	Bands       []string          `yaml:"bands" json:"bands"`
	Rename      map[string]string `yaml:"rename" json:"rename"`
	Postprocess PostprocessKind   `yaml:"postprocess" json:"postprocess"`
	Mask        *Mask             `yaml:"mask" json:"mask,omitempty"`
	Policy      DuplicatePolicy   `yaml:"policy" json:"policy"`
}

// DefaultPolicy returns the duplicate policy used when a source leaves it
// unset: observational and climate refills keep the archived value, model
// fire-weather refills keep the newest extraction.
func DefaultPolicy(d DataDomain, vs VariableSet) DuplicatePolicy {
	if d == DomainModel && vs == VariableSetFWI {
		return KeepLast
	}
	return KeepFirst
}

// DefaultLabel derives the summary column label, e.g. "ACCESS_SSP126".
func DefaultLabel(d DataDomain, model, scenario string) string {
	if d == DomainObserved {
		return ObservedLabel
	}
	if scenario == "" {
		return strings.ToUpper(model)
	}
	return strings.ToUpper(model) + "_" + strings.ToUpper(scenario)
}

// Validate checks that the descriptor is complete and internally consistent.
func (s Source) Validate() error {
	if s.Key == "" {
		return errors.New("source key is required")
	}
	switch s.Domain {
	case DomainObserved, DomainModel:
	default:
		return fmt.Errorf("source %s: unknown domain %q", s.Key, s.Domain)
	}
	switch s.VariableSet {
	case VariableSetClimate, VariableSetFWI:
	default:
		return fmt.Errorf("source %s: unknown variable set %q", s.Key, s.VariableSet)
	}
	switch s.Policy {
	case KeepFirst, KeepLast:
	default:
		return fmt.Errorf("source %s: unknown duplicate policy %q", s.Key, s.Policy)
	}
	switch s.Postprocess {
	case PostprocessNone, PostprocessClimate, PostprocessObservedInputs:
	default:
		return fmt.Errorf("source %s: unknown postprocess %q", s.Key, s.Postprocess)
	}
	if s.Range.Len() == 0 {
		return fmt.Errorf("source %s: empty month range", s.Key)
	}
	if s.FilePattern == "" {
		return fmt.Errorf("source %s: file pattern is required", s.Key)
	}
	if len(s.Bands) == 0 {
		return fmt.Errorf("source %s: no bands", s.Key)
	}
	seen := make(map[string]bool, len(s.Bands))
	for _, v := range s.Variables() {
		if seen[v] {
			return fmt.Errorf("source %s: variable %q produced twice", s.Key, v)
		}
		seen[v] = true
	}
	return nil
}

// Variables returns the output variable names in band order.
func (s Source) Variables() []string {
	out := make([]string, len(s.Bands))
	for i, b := range s.Bands {
		out[i] = s.VariableName(b)
	}
	return out
}

// VariableName maps a raw band to its output variable name.
func (s Source) VariableName(band string) string {
	if name, ok := s.Rename[band]; ok {
		return name
	}
	return band
}

// FileID expands the file pattern for one month. Recognised placeholders:
// {model}, {model_long}, {scenario}, {SCENARIO}, {year}, {month}. The month
// is not zero-padded, matching the upstream bucket layout.
func (s Source) FileID(m Month) string {
	r := strings.NewReplacer(
		"{model}", s.Model,
		"{model_long}", s.ModelLong,
		"{scenario}", s.Scenario,
		"{SCENARIO}", strings.ToUpper(s.Scenario),
		"{year}", strconv.Itoa(m.Year()),
		"{month}", strconv.Itoa(int(m.Calendar())),
	)
	return r.Replace(s.FilePattern)
}
