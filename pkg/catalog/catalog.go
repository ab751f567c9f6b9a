package catalog

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"mercator-hq/cascade/pkg/rules"
)

// Catalog is the capability the composition engine needs from a rule
// registry. Implementations must be side-effect free and safe for concurrent
// use.
type Catalog interface {
	// Lookup returns the schema for id, or false if the rule is unknown.
	// The caller owns the returned schema.
	Lookup(id rules.RuleID) (*Schema, bool)

	// Validate checks setting against the schema of id. It returns a
	// *NotFoundError for unknown rules and a *SettingError listing every
	// violation otherwise.
	Validate(id rules.RuleID, setting rules.Setting) error
}

// Lister is implemented by catalogs that can enumerate their rules. The
// engine uses it to suggest the nearest known id for an unknown one.
type Lister interface {
	RuleIDs() []rules.RuleID
}

// Registry is an in-memory, versioned Catalog. It is filled at startup and
// treated as read-only afterwards; every Register bumps the version so a
// hot-reloaded catalog is a new snapshot.
type Registry struct {
	mu      sync.RWMutex
	schemas map[rules.RuleID]*Schema
	version uint64
	label   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[rules.RuleID]*Schema)}
}

// Register adds or replaces schemas. The registry keeps its own copies, so
// later changes to the arguments do not reach it. Every schema is checked
// first; on error nothing is registered.
func (r *Registry) Register(schemas ...*Schema) error {
	copies := make([]*Schema, len(schemas))
	for i, s := range schemas {
		if s == nil {
			return fmt.Errorf("schema cannot be nil")
		}
		c := s.Clone()
		if err := c.check(); err != nil {
			return err
		}
		copies[i] = c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range copies {
		r.schemas[s.ID] = s
	}
	r.version++
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(schemas ...*Schema) {
	if err := r.Register(schemas...); err != nil {
		panic(err)
	}
}

// Lookup implements Catalog. It returns a copy of the registered schema.
func (r *Registry) Lookup(id rules.RuleID) (*Schema, bool) {
	s, ok := r.schema(id)
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// schema returns the registered schema itself. Registered schemas are never
// modified, so it stays valid after the lock is released.
func (r *Registry) schema(id rules.RuleID) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	return s, ok
}

// Validate implements Catalog.
func (r *Registry) Validate(id rules.RuleID, setting rules.Setting) error {
	schema, ok := r.schema(id)
	if !ok {
		return &NotFoundError{RuleID: id}
	}
	if violations := ValidateSetting(schema, setting); len(violations) > 0 {
		return &SettingError{RuleID: id, Violations: violations}
	}
	return nil
}

// RuleIDs implements Lister. The result is sorted.
func (r *Registry) RuleIDs() []rules.RuleID {
	r.mu.RLock()
	ids := make([]rules.RuleID, 0, len(r.schemas))
	for id := range r.schemas {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	rules.SortIDs(ids)
	return ids
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// Version returns the snapshot version. It increases on every Register.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Label returns the version label declared by the loaded document, if any.
func (r *Registry) Label() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.label
}

// Merge registers copies of every schema of other into r.
func (r *Registry) Merge(other *Registry) error {
	other.mu.RLock()
	schemas := make([]*Schema, 0, len(other.schemas))
	for _, s := range other.schemas {
		schemas = append(schemas, s)
	}
	other.mu.RUnlock()
	return r.Register(schemas...)
}

// document is the YAML form of a catalog.
type document struct {
	Version string             `yaml:"version"`
	Rules   map[string]*Schema `yaml:"rules"`
}

// Parse reads a YAML catalog document.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	schemas := make([]*Schema, 0, len(doc.Rules))
	for id, s := range doc.Rules {
		if s == nil {
			s = &Schema{}
		}
		s.ID = rules.RuleID(id)
		schemas = append(schemas, s)
	}

	reg := NewRegistry()
	if err := reg.Register(schemas...); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	reg.label = doc.Version
	return reg, nil
}

// LoadFile reads a YAML catalog document from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %q: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}
