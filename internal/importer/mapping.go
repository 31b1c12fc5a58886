package importer

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed mapping.yaml
var defaultMapping []byte

// Mapping names the sheets and header aliases an import reads.
type Mapping struct {
	Sheets struct {
		Tasks      string `yaml:"tasks"`
		Strategies string `yaml:"strategies"`
	} `yaml:"sheets"`

	Tasks struct {
		Date              []string `yaml:"date"`
		Status            []string `yaml:"status"`
		What              []string `yaml:"what"`
		ActionDescription []string `yaml:"action_description"`
		Priority          []string `yaml:"priority"`
		Category          []string `yaml:"category"`
		How               []string `yaml:"how"`
		Where             []string `yaml:"where"`
		CTA               []string `yaml:"cta"`
		Duration          []string `yaml:"duration"`
		KPI               []string `yaml:"kpi"`
		DayType           []string `yaml:"day_type"`
		Weekday           []string `yaml:"weekday"`
		MacroTheme        []string `yaml:"macro_theme"`
		Angle             []string `yaml:"angle"`
		Channel           []string `yaml:"channel"`
	} `yaml:"tasks"`

	Strategies struct {
		WeekStart []string `yaml:"week_start"`
		Theme     []string `yaml:"theme"`
		Angles    []struct {
			Label   string   `yaml:"label"`
			Columns []string `yaml:"columns"`
		} `yaml:"angles"`
		Separator string `yaml:"separator"`
	} `yaml:"strategies"`
}

// DefaultMapping returns the built-in mapping for the planning workbook.
func DefaultMapping() *Mapping {
	m, err := parseMapping(defaultMapping)
	if err != nil {
		panic(fmt.Sprintf("importer: embedded mapping is invalid: %v", err))
	}
	return m
}

// LoadMapping reads a mapping file. An empty path returns the default.
// Sections missing from the file keep their default values.
func LoadMapping(path string) (*Mapping, error) {
	if path == "" {
		return DefaultMapping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	m := DefaultMapping()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}
	return m, m.validate()
}

func parseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, m.validate()
}

func (m *Mapping) validate() error {
	if m.Sheets.Tasks == "" {
		return fmt.Errorf("sheets.tasks is required")
	}
	if len(m.Tasks.Date) == 0 {
		return fmt.Errorf("tasks.date needs at least one header")
	}
	if len(m.Strategies.WeekStart) == 0 {
		return fmt.Errorf("strategies.week_start needs at least one header")
	}
	if m.Strategies.Separator == "" {
		m.Strategies.Separator = " | "
	}
	return nil
}
