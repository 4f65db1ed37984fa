package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

//go:embed plan.yaml
var defaultPlan []byte

// Expansion axes a source template may declare.
const (
	expandModel    = "model"
	expandScenario = "scenario"
)

// RasterSettings are the reduction parameters shared by every extraction.
type RasterSettings struct {
	GeometryCollection string  `yaml:"geometry_collection"`
	Reducer            string  `yaml:"reducer"`
	Scale              float64 `yaml:"scale"`
	MaxPixels          float64 `yaml:"max_pixels"`
	FillValue          float64 `yaml:"fill_value"`
}

// Model pairs the short model name used in keys with the long name used in
// bucket paths.
type Model struct {
	Name     string `yaml:"name"`
	LongName string `yaml:"long_name"`
}

// SummaryGroup says which archives feed the summary for one variable set.
type SummaryGroup struct {
	VariableSet domain.VariableSet
	Variables   []string
	Observed    string   // source key
	Models      []string // source keys, in column order
}

// Windows are the aggregation periods used by the summarizer.
type Windows struct {
	Historical domain.MonthRange
	Overlap    domain.MonthRange
	Future     []domain.Window
}

// Plan is the validated, fully expanded run plan.
type Plan struct {
	Raster  RasterSettings
	Catalog *domain.Catalog
	Sources []domain.Source
	Windows Windows
	Summary []SummaryGroup

	byKey map[string]int
}

// Source looks up an expanded source by key.
func (p *Plan) Source(key string) (domain.Source, bool) {
	i, ok := p.byKey[key]
	if !ok {
		return domain.Source{}, false
	}
	return p.Sources[i], true
}

// LoadPlan reads a YAML plan from path, or the embedded default when path is
// empty.
func LoadPlan(path string) (*Plan, error) {
	data := defaultPlan
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read plan: %w", err)
		}
		data = b
	}
	return ParsePlan(data)
}

// ParsePlan decodes, expands and validates a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return f.compile()
}

type planFile struct {
	Raster    RasterSettings                  `yaml:"raster"`
	Masks     map[string]domain.Mask          `yaml:"masks"`
	Models    []Model                         `yaml:"models"`
	Scenarios []string                        `yaml:"scenarios"`
	Variables map[domain.VariableSet][]string `yaml:"variables"`
	Sources   []sourceTemplate                `yaml:"sources"`
	Windows   windowsFile                     `yaml:"windows"`
	Summary   []summaryFile                   `yaml:"summary"`
	Regions   []domain.Region                 `yaml:"regions"`
}

type sourceTemplate struct {
	Key         string                 `yaml:"key"`
	Label       string                 `yaml:"label"`
	Domain      domain.DataDomain      `yaml:"domain"`
	Expand      []string               `yaml:"expand"`
	VariableSet domain.VariableSet     `yaml:"variable_set"`
	Range       string                 `yaml:"range"`
	FilePattern string                 `yaml:"file_pattern"`
	Bands       []string               `yaml:"bands"`
	Rename      map[string]string      `yaml:"rename"`
	Postprocess domain.PostprocessKind `yaml:"postprocess"`
	Mask        string                 `yaml:"mask"`
	Policy      domain.DuplicatePolicy `yaml:"policy"`
}

type windowsFile struct {
	Historical string `yaml:"historical"`
	Overlap    string `yaml:"overlap"`
	Future     []struct {
		Label string `yaml:"label"`
		Range string `yaml:"range"`
	} `yaml:"future"`
}

type summaryFile struct {
	VariableSet domain.VariableSet `yaml:"variable_set"`
	Observed    string             `yaml:"observed"`
	Models      string             `yaml:"models"`
}

func (f *planFile) compile() (*Plan, error) {
	if f.Raster.Scale <= 0 {
		return nil, errors.New("plan: raster.scale must be positive")
	}
	if f.Raster.MaxPixels <= 0 {
		return nil, errors.New("plan: raster.max_pixels must be positive")
	}
	if f.Raster.Reducer == "" {
		f.Raster.Reducer = "mean"
	}

	catalog, err := domain.NewCatalog(f.Regions)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if catalog.Len() == 0 {
		return nil, errors.New("plan: no regions")
	}

	p := &Plan{Raster: f.Raster, Catalog: catalog, byKey: make(map[string]int)}
	for _, tmpl := range f.Sources {
		sources, err := f.expand(tmpl)
		if err != nil {
			return nil, err
		}
		for _, s := range sources {
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("plan: %w", err)
			}
			if _, dup := p.byKey[s.Key]; dup {
				return nil, fmt.Errorf("plan: duplicate source key %q", s.Key)
			}
			p.byKey[s.Key] = len(p.Sources)
			p.Sources = append(p.Sources, s)
		}
	}
	if len(p.Sources) == 0 {
		return nil, errors.New("plan: no sources")
	}

	if p.Windows, err = f.Windows.compile(); err != nil {
		return nil, err
	}

	for _, sf := range f.Summary {
		g, err := f.summaryGroup(p, sf)
		if err != nil {
			return nil, err
		}
		p.Summary = append(p.Summary, g)
	}
	return p, nil
}

// expand turns one template into concrete sources across the declared axes.
func (f *planFile) expand(t sourceTemplate) ([]domain.Source, error) {
	r, err := domain.ParseMonthRange(t.Range)
	if err != nil {
		return nil, fmt.Errorf("plan: source %s: %w", t.Key, err)
	}

	var mask *domain.Mask
	if t.Mask != "" {
		m, ok := f.Masks[t.Mask]
		if !ok {
			return nil, fmt.Errorf("plan: source %s: unknown mask %q", t.Key, t.Mask)
		}
		mask = &m
	}

	models := []Model{{}}
	scenarios := []string{""}
	for _, axis := range t.Expand {
		switch axis {
		case expandModel:
			models = f.Models
		case expandScenario:
			scenarios = f.Scenarios
		default:
			return nil, fmt.Errorf("plan: source %s: unknown expansion %q", t.Key, axis)
		}
	}
	if len(models) == 0 || len(scenarios) == 0 {
		return nil, fmt.Errorf("plan: source %s: expansion produced no sources", t.Key)
	}

	var out []domain.Source
	for _, m := range models {
		for _, sc := range scenarios {
			fill := strings.NewReplacer("{model}", m.Name, "{scenario}", sc)
			s := domain.Source{
				Key:         fill.Replace(t.Key),
				Label:       fill.Replace(t.Label),
				Domain:      t.Domain,
				Model:       m.Name,
				ModelLong:   m.LongName,
				Scenario:    sc,
				VariableSet: t.VariableSet,
				Range:       r,
				FilePattern: t.FilePattern,
				Bands:       t.Bands,
				Rename:      t.Rename,
				Postprocess: t.Postprocess,
				Mask:        mask,
				Policy:      t.Policy,
			}
			if s.Label == "" {
				s.Label = domain.DefaultLabel(s.Domain, s.Model, s.Scenario)
			}
			if s.Policy == "" {
				s.Policy = domain.DefaultPolicy(s.Domain, s.VariableSet)
			}
			if s.Postprocess == "" {
				s.Postprocess = domain.PostprocessNone
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func (w windowsFile) compile() (Windows, error) {
	var out Windows
	var err error
	if out.Historical, err = domain.ParseMonthRange(w.Historical); err != nil {
		return out, fmt.Errorf("plan: windows.historical: %w", err)
	}
	if out.Overlap, err = domain.ParseMonthRange(w.Overlap); err != nil {
		return out, fmt.Errorf("plan: windows.overlap: %w", err)
	}
	if len(w.Future) == 0 {
		return out, errors.New("plan: windows.future is empty")
	}
	seen := map[string]bool{"historical": true}
	for _, fw := range w.Future {
		if fw.Label == "" || seen[fw.Label] {
			return out, fmt.Errorf("plan: future window label %q is empty or duplicated", fw.Label)
		}
		seen[fw.Label] = true
		r, err := domain.ParseMonthRange(fw.Range)
		if err != nil {
			return out, fmt.Errorf("plan: window %s: %w", fw.Label, err)
		}
		out.Future = append(out.Future, domain.Window{Label: fw.Label, Range: r})
	}
	return out, nil
}

func (f *planFile) summaryGroup(p *Plan, sf summaryFile) (SummaryGroup, error) {
	vars := f.Variables[sf.VariableSet]
	if len(vars) == 0 {
		return SummaryGroup{}, fmt.Errorf("plan: summary: no variables declared for %q", sf.VariableSet)
	}
	g := SummaryGroup{VariableSet: sf.VariableSet, Variables: vars, Observed: sf.Observed}

	obs, ok := p.Source(sf.Observed)
	if !ok {
		return g, fmt.Errorf("plan: summary %s: unknown observed source %q", sf.VariableSet, sf.Observed)
	}
	if obs.Domain != domain.DomainObserved {
		return g, fmt.Errorf("plan: summary %s: source %q is not observed", sf.VariableSet, sf.Observed)
	}

	for _, m := range f.Models {
		for _, sc := range f.Scenarios {
			key := strings.NewReplacer("{model}", m.Name, "{scenario}", sc).Replace(sf.Models)
			s, ok := p.Source(key)
			if !ok {
				return g, fmt.Errorf("plan: summary %s: unknown model source %q", sf.VariableSet, key)
			}
			if s.Label == domain.ObservedLabel {
				return g, fmt.Errorf("plan: summary %s: model source %q uses the observed label", sf.VariableSet, key)
			}
			g.Models = append(g.Models, key)
		}
	}
	return g, nil
}
