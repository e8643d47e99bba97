// Package ruleset loads named constraint declarations from a YAML
// configuration file and resolves them into term.Constraint values the
// pattern language can attach to variables and symbols by name, the same
// way funxy.yaml declares Go bindings by name for the ext package to
// resolve at build time.
package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/acmatch/acmatch/internal/term"
)

// Config is the top-level ruleset.yaml document.
type Config struct {
	Constraints []ConstraintSpec `yaml:"constraints"`
}

// ConstraintSpec names one reusable constraint and the rule it checks
// against whichever variable it is attached to in a pattern.
type ConstraintSpec struct {
	// Name is how patterns reference this constraint, e.g.
	// `x_ where x constraint("even")`.
	Name string `yaml:"name"`

	// Kind selects the builtin predicate family: "one_of", "not_equal",
	// "symbol_subtype", or "min_length"/"max_length" for sequence bindings.
	Kind string `yaml:"kind"`

	// Values lists the comparison operands for one_of/not_equal/symbol_subtype.
	Values []string `yaml:"values,omitempty"`

	// Length is the bound for min_length/max_length.
	Length int `yaml:"length,omitempty"`
}

// LoadConfig reads and parses a ruleset YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ruleset %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses ruleset YAML content from bytes. The path argument is
// used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig searches for acmatch.yaml starting from dir and walking up to
// parent directories, mirroring ext.FindConfig's funxy.yaml search.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range []string{"acmatch.yaml", "acmatch.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	seen := map[string]bool{}
	for i, spec := range c.Constraints {
		if spec.Name == "" {
			return fmt.Errorf("%s: constraints[%d]: name is required", path, i)
		}
		if seen[spec.Name] {
			return fmt.Errorf("%s: constraints[%d]: duplicate constraint name %q", path, i, spec.Name)
		}
		seen[spec.Name] = true
		switch spec.Kind {
		case "one_of", "not_equal", "symbol_subtype":
			if len(spec.Values) == 0 {
				return fmt.Errorf("%s: constraints[%d] (%s): kind %q requires values", path, i, spec.Name, spec.Kind)
			}
		case "min_length", "max_length":
			// Length defaults to zero, which is a legal (if useless) bound.
		default:
			return fmt.Errorf("%s: constraints[%d] (%s): unknown kind %q", path, i, spec.Name, spec.Kind)
		}
	}
	return nil
}

// Registry resolves constraint names declared in a ruleset into
// term.Constraint values ready to attach to pattern variables.
type Registry struct {
	specs map[string]ConstraintSpec
}

// NewRegistry builds a Registry from a parsed Config, rejecting any spec
// whose kind does not resolve to a known checker up front rather than
// failing lazily the first time a pattern references it.
func NewRegistry(cfg *Config) (*Registry, error) {
	r := &Registry{specs: make(map[string]ConstraintSpec, len(cfg.Constraints))}
	for _, spec := range cfg.Constraints {
		if _, err := checkerFor(spec); err != nil {
			return nil, fmt.Errorf("constraint %q: %w", spec.Name, err)
		}
		r.specs[spec.Name] = spec
	}
	return r, nil
}

// Has reports whether name was declared in the ruleset.
func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Resolve is the helper the pattern language calls for a
// `where x constraint("name")` clause: it looks the named kind up and binds it
// to check variable varName specifically in whatever substitution it is
// later handed, with DependsOn reporting varName.
func (r *Registry) Resolve(name string, varName string) (term.Constraint, error) {
	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("unknown constraint %q", name)
	}
	check, err := checkerFor(spec)
	if err != nil {
		return nil, err
	}
	return term.FuncConstraint{Vars: []string{varName}, Fn: func(s term.Substitution) bool {
		v, ok := s.Get(varName)
		if !ok {
			return true // not yet bound: nothing to check yet
		}
		return check(v)
	}}, nil
}

// checkerFor builds the single-value predicate for one constraint kind.
func checkerFor(spec ConstraintSpec) (func(term.Value) bool, error) {
	switch spec.Kind {
	case "one_of":
		values := spec.Values
		return func(v term.Value) bool { return symbolFieldIn(v, false, values) }, nil
	case "not_equal":
		values := spec.Values
		return func(v term.Value) bool { return !symbolFieldIn(v, false, values) }, nil
	case "symbol_subtype":
		values := spec.Values
		return func(v term.Value) bool { return symbolFieldIn(v, true, values) }, nil
	case "min_length":
		n := spec.Length
		return func(v term.Value) bool { return v.IsTuple() && len(v.Tuple) >= n }, nil
	case "max_length":
		n := spec.Length
		return func(v term.Value) bool { return v.IsTuple() && len(v.Tuple) <= n }, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", spec.Kind)
	}
}

// symbolFieldIn reports whether v is a single Symbol binding whose Name (or
// SubType, if bySubtype) appears in values. A tuple or non-Symbol binding
// never satisfies a field-based constraint.
func symbolFieldIn(v term.Value, bySubtype bool, values []string) bool {
	if v.IsTuple() {
		return false
	}
	sym, ok := v.Single.(term.Symbol)
	if !ok {
		return false
	}
	field := sym.Name
	if bySubtype {
		field = sym.SubType
	}
	return contains(values, field)
}

func contains(values []string, v string) bool {
	for _, c := range values {
		if c == v {
			return true
		}
	}
	return false
}

// ParseLength parses a length bound written as a plain decimal integer, the
// form ruleset length bounds take in YAML. The pattern language does not
// call it; its wildcard attributes are only min=, fixed= and type=.
func ParseLength(s string) (int, error) {
	return strconv.Atoi(s)
}
