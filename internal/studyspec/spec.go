// Package studyspec loads and validates the design_spec document that
// defines a conjoint study: its attributes and the generation parameters.
// Specs are accepted as JSON or YAML; attribute order in the document is
// preserved because it feeds the deterministic design search.
package studyspec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"conjoint/internal/design"
)

// Defaults applied to omitted (zero-valued) fields, matching the reference
// tool's behavior.
const (
	DefaultTasksPerVersion = 8
	DefaultProfilesPerTask = 3
	DefaultNVersions       = 4
	DefaultMinAttrDiff     = 2
	DefaultSeed            = 42
)

// MethodCBC is the only supported study method.
const MethodCBC = "cbc"

// Levels-per-attribute band outside which design quality degrades. Soft
// guidance only, never fatal.
const (
	comfortableLevelsMin = 2
	comfortableLevelsMax = 5
)

// Spec is the parsed design_spec document.
type Spec struct {
	Attributes       Attributes `json:"attributes" yaml:"attributes"`
	Method           string     `json:"method,omitempty" yaml:"method,omitempty"`
	TasksPerVersion  int        `json:"tasks_per_version" yaml:"tasks_per_version"`
	ProfilesPerTask  int        `json:"profiles_per_task" yaml:"profiles_per_task"`
	NVersions        int        `json:"n_versions" yaml:"n_versions"`
	IncludeNone      bool       `json:"include_none" yaml:"include_none"`
	MinAttributeDiff int        `json:"min_attribute_diff" yaml:"min_attribute_diff"`
	Seed             int64      `json:"seed" yaml:"seed"`
}

// Load reads a spec from disk, picking the decoder by extension (.yaml/.yml
// vs JSON), applies defaults, and validates.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read design spec: %w", err)
	}
	var spec Spec
	var present map[string]bool
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse design spec %s: %w", path, err)
		}
		present = yamlKeys(data)
	default:
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse design spec %s: %w", path, err)
		}
		present = jsonKeys(data)
	}
	spec.applyDefaults(present)
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// jsonKeys and yamlKeys record which top-level keys the document actually
// carries. Defaults are presence-based: an explicit zero is kept and left
// to fail the generator's range validation rather than being silently
// replaced, and an explicit seed of 0 is a valid seed.
func jsonKeys(data []byte) map[string]bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	keys := make(map[string]bool, len(raw))
	for k := range raw {
		keys[k] = true
	}
	return keys
}

func yamlKeys(data []byte) map[string]bool {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil
	}
	keys := make(map[string]bool, len(raw))
	for k := range raw {
		keys[k] = true
	}
	return keys
}

func (s *Spec) applyDefaults(present map[string]bool) {
	if s.Method == "" {
		s.Method = MethodCBC
	}
	if !present["tasks_per_version"] {
		s.TasksPerVersion = DefaultTasksPerVersion
	}
	if !present["profiles_per_task"] {
		s.ProfilesPerTask = DefaultProfilesPerTask
	}
	if !present["n_versions"] {
		s.NVersions = DefaultNVersions
	}
	if !present["min_attribute_diff"] {
		// The default is clamped to stay satisfiable; an explicit value is
		// never adjusted and fails validation instead.
		s.MinAttributeDiff = DefaultMinAttrDiff
		if n := len(s.Attributes); n > 1 && s.MinAttributeDiff > n-1 {
			s.MinAttributeDiff = n - 1
		}
	}
	if !present["seed"] {
		s.Seed = DefaultSeed
	}
}

// Validate checks the spec's structural invariants. Parameter-range checks
// against the attribute space happen in the design generator; this catches
// what can be judged from the document alone.
func (s *Spec) Validate() error {
	if s.Method != MethodCBC {
		return &design.ConfigurationError{Field: "method", Reason: fmt.Sprintf("unsupported method %q, only %q", s.Method, MethodCBC)}
	}
	if len(s.Attributes) == 0 {
		return &design.ConfigurationError{Field: "attributes", Reason: "at least one attribute is required"}
	}
	// Delegate the per-attribute invariants (>=2 levels, uniqueness).
	if _, err := s.Space(); err != nil {
		return err
	}
	return nil
}

// Space builds the AttributeSpace declared by the spec.
func (s *Spec) Space() (*design.AttributeSpace, error) {
	return design.NewAttributeSpace([]design.Attribute(s.Attributes))
}

// Params maps the spec onto the generator's parameters.
func (s *Spec) Params() design.Params {
	return design.Params{
		TasksPerVersion:  s.TasksPerVersion,
		ProfilesPerTask:  s.ProfilesPerTask,
		NVersions:        s.NVersions,
		IncludeNone:      s.IncludeNone,
		MinAttributeDiff: s.MinAttributeDiff,
		Seed:             s.Seed,
	}
}

// SoftWarnings returns quality guidance that does not block the run, such as
// attributes with level counts outside the comfortable 2-5 band.
func (s *Spec) SoftWarnings() []string {
	var ws []string
	for _, a := range s.Attributes {
		if len(a.Levels) < comfortableLevelsMin || len(a.Levels) > comfortableLevelsMax {
			ws = append(ws, fmt.Sprintf(
				"attribute %q has %d levels; design quality is best with %d-%d",
				a.Name, len(a.Levels), comfortableLevelsMin, comfortableLevelsMax))
		}
	}
	return ws
}
