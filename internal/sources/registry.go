package sources

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"horse.fit/incident-integrator/internal/incident"
	"horse.fit/incident-integrator/internal/normalize"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Registry holds the adapter configuration for every source.
type Registry struct {
	Sources []Source `yaml:"sources"`
}

// Source adapts one organization's tables to canonical raw rows.
type Source struct {
	Name string `yaml:"name"`
	// Tier may be empty when rows name their own source via SourceField.
	Tier  string   `yaml:"tier,omitempty"`
	Files []string `yaml:"files"`
	// Format overrides the extension-based choice between csv and json.
	Format      string              `yaml:"format,omitempty"`
	SourceField string              `yaml:"source_field,omitempty"`
	Fields      map[string][]string `yaml:"fields"`
	Defaults    map[string]string   `yaml:"defaults,omitempty"`
	Templates   map[string]string   `yaml:"templates,omitempty"`

	tier incident.Tier
}

var templateVarRe = regexp.MustCompile(`\{([^{}]+)\}`)

// LoadRegistry reads the registry at path, or the embedded default when
// path is empty.
func LoadRegistry(path string) (*Registry, error) {
	var (
		data []byte
		err  error
	)
	if strings.TrimSpace(path) == "" {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read source registry: %w", err)
	}
	return ParseRegistry(data)
}

func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse source registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Registry) Validate() error {
	if len(r.Sources) == 0 {
		return fmt.Errorf("source registry has no sources")
	}
	seen := make(map[string]struct{}, len(r.Sources))
	for i := range r.Sources {
		src := &r.Sources[i]
		src.Name = strings.TrimSpace(src.Name)
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		key := strings.ToUpper(src.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("sources[%d]: duplicate source %q", i, src.Name)
		}
		seen[key] = struct{}{}

		if err := src.validate(); err != nil {
			return fmt.Errorf("source %s: %w", src.Name, err)
		}
	}
	return nil
}

func (s *Source) validate() error {
	if len(s.Files) == 0 {
		return fmt.Errorf("at least one file pattern is required")
	}
	for _, pattern := range s.Files {
		if filepath.IsAbs(pattern) || strings.HasPrefix(filepath.Clean(pattern), "..") {
			return fmt.Errorf("file pattern %q must stay inside the data directory", pattern)
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("file pattern %q: %w", pattern, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(s.Format)) {
	case "", FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("unsupported format %q", s.Format)
	}

	if strings.TrimSpace(s.Tier) != "" {
		tier, err := incident.ParseTier(s.Tier)
		if err != nil {
			return err
		}
		s.tier = tier
	}

	for field, columns := range s.Fields {
		if err := checkField(field); err != nil {
			return err
		}
		if len(columns) == 0 {
			return fmt.Errorf("field %q lists no columns", field)
		}
	}
	for field := range s.Defaults {
		if err := checkField(field); err != nil {
			return err
		}
	}
	for field, tpl := range s.Templates {
		if err := checkField(field); err != nil {
			return err
		}
		if !templateVarRe.MatchString(tpl) {
			return fmt.Errorf("template for %q references no columns", field)
		}
	}
	return nil
}

func checkField(field string) error {
	if field == normalize.FieldSource {
		return fmt.Errorf("field %q is set from the source name or source_field", field)
	}
	if !slices.Contains(normalize.Fields, field) {
		return fmt.Errorf("unknown canonical field %q", field)
	}
	return nil
}

// Origin is the normalizer origin for rows of this source.
func (s Source) Origin() normalize.Origin {
	return normalize.Origin{Source: s.Name, Tier: s.tier}
}

// Adapt maps one raw table row onto canonical field names. Mapped columns
// win over templates, and templates over constant defaults.
func (s Source) Adapt(raw map[string]any) normalize.Row {
	columns := make(map[string]any, len(raw))
	for key, value := range raw {
		columns[strings.ToLower(strings.TrimSpace(key))] = value
	}

	row := make(normalize.Row, len(s.Fields)+1)
	for field, candidates := range s.Fields {
		for _, column := range candidates {
			value, ok := columns[strings.ToLower(strings.TrimSpace(column))]
			if ok && !blank(value) {
				row[field] = value
				break
			}
		}
	}
	for field, tpl := range s.Templates {
		if _, set := row[field]; set {
			continue
		}
		if rendered := render(tpl, columns); rendered != "" {
			row[field] = rendered
		}
	}
	for field, value := range s.Defaults {
		if blank(row[field]) {
			row[field] = value
		}
	}

	source := s.Name
	if s.SourceField != "" {
		if named := normalize.Text(columns[strings.ToLower(s.SourceField)]); named != "" {
			source = named
		}
	}
	row[normalize.FieldSource] = source
	return row
}

// render fills {column} placeholders; a template with any empty
// placeholder renders as "".
func render(tpl string, columns map[string]any) string {
	missing := false
	out := templateVarRe.ReplaceAllStringFunc(tpl, func(match string) string {
		name := strings.ToLower(strings.TrimSpace(match[1 : len(match)-1]))
		value := normalize.Text(columns[name])
		if value == "" {
			missing = true
		}
		return value
	})
	if missing {
		return ""
	}
	return out
}

func blank(v any) bool {
	return normalize.Text(v) == ""
}
