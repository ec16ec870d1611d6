package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"tenureline/internal/domain"
	"tenureline/internal/hierarchy"
)

// Config models tenureline.yml.
type Config struct {
	Corpus struct {
		Name string `yaml:"name"`
	} `yaml:"corpus"`
	PostID     PostIDConfig  `yaml:"post_id"`
	Matcher    MatcherConfig `yaml:"matcher"`
	Builder    BuilderConfig `yaml:"builder"`
	Manager    ManagerConfig `yaml:"manager"`
	Export     ExportConfig  `yaml:"export"`
	Serve      ServeConfig   `yaml:"serve"`
	Ministries []MinistryRef `yaml:"ministries"`
}

// PostIDConfig selects which hierarchy fields form post identity.
type PostIDConfig struct {
	Fields []string `yaml:"fields"`
}

// MatcherConfig configures the taxonomy matcher used when imported posts
// carry raw text instead of resolved paths.
type MatcherConfig struct {
	TaxonomyFiles  map[string]string `yaml:"taxonomy_files"`
	IgnoreCase     bool              `yaml:"ignore_case"`
	WordBoundary   bool              `yaml:"word_boundary"`
	SelectStrategy string            `yaml:"select_strategy"`
}

// Options converts to the matcher's option struct.
func (m MatcherConfig) Options() hierarchy.MatchOptions {
	return hierarchy.MatchOptions{
		IgnoreCase:   m.IgnoreCase,
		WordBoundary: m.WordBoundary,
		Strategy:     hierarchy.SelectStrategy(m.SelectStrategy),
	}
}

// BuilderConfig are the tenure state machine's knobs.
type BuilderConfig struct {
	DefaultRole string `yaml:"default_role"`
	// Orders in these categories reissue the entire slate: an open post
	// absent from such an order is implicitly relinquished.
	WholeSlateCategories []string `yaml:"whole_slate_categories"`
	LongTenureDays       int      `yaml:"long_tenure_days"`
	GapDays              int      `yaml:"gap_days"`
	MinYear              int      `yaml:"min_year"`
	MaxYearOffset        int      `yaml:"max_year_offset"`
}

// IsWholeSlate reports whether an order category replaces the full slate.
func (b BuilderConfig) IsWholeSlate(category string) bool {
	for _, c := range b.WholeSlateCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ManagerConfig configures manager linkage.
type ManagerConfig struct {
	SubordinateRoles []string `yaml:"subordinate_roles"`
}

// IsSubordinate reports whether role is in the subordinate set.
func (m ManagerConfig) IsSubordinate(role string) bool {
	for _, r := range m.SubordinateRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ExportConfig controls where build output lands.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// ServeConfig configures the read-only browse API.
type ServeConfig struct {
	Addr     string `yaml:"addr"`
	BasePath string `yaml:"base_path"`
}

// MinistryRef is a ministry period as written in YAML; end_date "today"
// means the period is still running.
type MinistryRef struct {
	Name      string `yaml:"name"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

// ParseMinistries resolves the reference list into dated periods sorted by
// start date. now substitutes for the "today" sentinel.
func (c *Config) ParseMinistries(now time.Time) ([]domain.Ministry, error) {
	out := make([]domain.Ministry, 0, len(c.Ministries))
	for _, m := range c.Ministries {
		start, err := domain.ParseDate(m.StartDate)
		if err != nil || start.IsZero() {
			return nil, fmt.Errorf("ministry %s: invalid start_date %q", m.Name, m.StartDate)
		}
		var end time.Time
		if m.EndDate == "today" {
			// truncate to UTC midnight so the date survives the wire format
			y, mo, d := now.UTC().Date()
			end = time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
		} else {
			end, err = domain.ParseDate(m.EndDate)
			if err != nil || end.IsZero() {
				return nil, fmt.Errorf("ministry %s: invalid end_date %q", m.Name, m.EndDate)
			}
		}
		out = append(out, domain.Ministry{Name: m.Name, Start: start, End: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "tenureline.yml")
}

// Load reads and validates config from workspace, falling back to defaults
// when the file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Missing sections
// inherit defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	for _, f := range c.PostID.Fields {
		if !validPostField(f) {
			return fmt.Errorf("post_id.fields contains unknown field %q", f)
		}
	}
	switch hierarchy.SelectStrategy(c.Matcher.SelectStrategy) {
	case hierarchy.StrategyFirst, hierarchy.StrategyLeftmost, hierarchy.StrategyConnectedSpanLen:
	default:
		return fmt.Errorf("matcher.select_strategy %q not recognized", c.Matcher.SelectStrategy)
	}
	if c.Builder.DefaultRole == "" {
		return fmt.Errorf("builder.default_role is required")
	}
	if c.Builder.LongTenureDays <= 0 {
		return fmt.Errorf("builder.long_tenure_days must be positive")
	}
	if c.Builder.GapDays <= 0 {
		return fmt.Errorf("builder.gap_days must be positive")
	}
	if c.Builder.MinYear <= 0 {
		return fmt.Errorf("builder.min_year must be positive")
	}
	for i, m := range c.Ministries {
		if m.Name == "" {
			return fmt.Errorf("ministries[%d] has empty name", i)
		}
		if m.StartDate == "" || m.EndDate == "" {
			return fmt.Errorf("ministry %s needs start_date and end_date", m.Name)
		}
	}
	return nil
}

func validPostField(f string) bool {
	for _, known := range domain.PostFields {
		if f == known {
			return true
		}
	}
	return false
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML for tl init.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `corpus:
  name: cabinet

post_id:
  fields: [dept, role, juri, loca, stat]

matcher:
  taxonomy_files: {}
  ignore_case: true
  word_boundary: true
  select_strategy: connected_span_len

builder:
  default_role: Cabinet Minister
  whole_slate_categories:
    - Council of Ministers
  long_tenure_days: 2190
  gap_days: 3650
  min_year: 1947
  max_year_offset: 1

manager:
  subordinate_roles:
    - Minister of State
    - Deputy Minister

export:
  dir: output

serve:
  addr: 127.0.0.1:8080
  base_path: /v0

ministries: []
`
