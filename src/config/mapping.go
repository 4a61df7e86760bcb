package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"confsync/src/backupid"
)

// Kind selects the copy primitive for both sides of a mapping.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

func (k Kind) valid() bool { return k == KindFile || k == KindDir }

// Mapping associates a machine-local path with a repository path under a
// unique name. Mappings are declared once at startup and immutable for the
// run.
type Mapping struct {
	Name       string
	SystemPath string
	RepoPath   string
	Kind       Kind

	// raw holds the original compact-form declaration, if any, so format
	// errors can quote what the user wrote.
	raw string
}

// mappingDoc is the structured YAML form of a mapping.
type mappingDoc struct {
	Name   string `yaml:"name"`
	System string `yaml:"system"`
	Repo   string `yaml:"repo"`
	Kind   string `yaml:"kind"`
}

// UnmarshalYAML accepts either the structured form or the compact
// "name:system:repo:kind" scalar. Shape errors are deferred to
// Registry.ValidateAll so one bad entry does not hide the others.
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.raw = node.Value
		parts := strings.Split(node.Value, ":")
		if len(parts) == 4 {
			m.Name = strings.TrimSpace(parts[0])
			m.SystemPath = strings.TrimSpace(parts[1])
			m.RepoPath = strings.TrimSpace(parts[2])
			m.Kind = Kind(strings.TrimSpace(parts[3]))
		}
		return nil
	}
	var doc mappingDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	m.Name = doc.Name
	m.SystemPath = doc.System
	m.RepoPath = doc.Repo
	m.Kind = Kind(doc.Kind)
	return nil
}

// Path returns the side of the mapping named by loc.
func (m Mapping) Path(loc backupid.Location) string {
	if loc == backupid.LocationSystem {
		return m.SystemPath
	}
	return m.RepoPath
}

// validateFormat checks one mapping against the 4-field grammar.
func validateFormat(m Mapping) error {
	if m.raw != "" {
		if parts := strings.Split(m.raw, ":"); len(parts) != 4 {
			return fmt.Errorf("mapping %q: expected name:system_path:repo_path:kind", m.raw)
		}
	}
	if m.Name == "" {
		return fmt.Errorf("mapping with system path %q: name must not be empty", m.SystemPath)
	}
	if m.SystemPath == "" {
		return fmt.Errorf("mapping %q: system path must not be empty", m.Name)
	}
	if m.RepoPath == "" {
		return fmt.Errorf("mapping %q: repo path must not be empty", m.Name)
	}
	if !m.Kind.valid() {
		return fmt.Errorf("mapping %q: kind must be %q or %q, got %q", m.Name, KindFile, KindDir, string(m.Kind))
	}
	return nil
}

// NotFoundError reports a mapping name with no declaration.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no mapping named %q is declared", e.Name)
}

// Registry holds the declared mappings in declaration order.
type Registry struct {
	mappings []Mapping
}

// NewRegistry builds a registry over the given mappings. Call ValidateAll
// before using it for anything else.
func NewRegistry(mappings []Mapping) *Registry {
	return &Registry{mappings: mappings}
}

// Mappings returns the declarations in order.
func (r *Registry) Mappings() []Mapping {
	return r.mappings
}

// ValidateAll checks every mapping against the grammar and name uniqueness,
// returning one error per failure. Any failure must abort the run before the
// filesystem is touched.
func (r *Registry) ValidateAll() []error {
	var errs []error
	seen := make(map[string]bool, len(r.mappings))
	for _, m := range r.mappings {
		if err := validateFormat(m); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[m.Name] {
			errs = append(errs, fmt.Errorf("mapping %q: duplicate name", m.Name))
			continue
		}
		seen[m.Name] = true
	}
	return errs
}

// Resolve returns the mapping with the given name and the path for loc.
func (r *Registry) Resolve(name string, loc backupid.Location) (Mapping, string, error) {
	for _, m := range r.mappings {
		if m.Name == name {
			return m, m.Path(loc), nil
		}
	}
	return Mapping{}, "", &NotFoundError{Name: name}
}
