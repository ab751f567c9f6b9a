package catalog

import (
	"fmt"

	"mercator-hq/cascade/pkg/rules"
)

// OptionType is the accepted kind of an option value.
type OptionType string

const (
	TypeAny     OptionType = "any"
	TypeString  OptionType = "string"
	TypeInteger OptionType = "integer"
	TypeNumber  OptionType = "number"
	TypeBoolean OptionType = "boolean"
	TypeObject  OptionType = "object"
	TypeArray   OptionType = "array"
	TypeNull    OptionType = "null"
)

// validTypes lists every OptionType a schema may use.
var validTypes = map[OptionType]bool{
	TypeAny: true, TypeString: true, TypeInteger: true, TypeNumber: true,
	TypeBoolean: true, TypeObject: true, TypeArray: true, TypeNull: true,
}

// OptionSpec constrains one option value.
type OptionSpec struct {
	// Type is the accepted kind. Empty means TypeAny unless Enum or OneOf
	// is set.
	Type OptionType `yaml:"type,omitempty" json:"type,omitempty"`

	// Enum restricts the value to a fixed set.
	Enum []any `yaml:"enum,omitempty" json:"enum,omitempty"`

	// Properties describes the keys of an object value.
	Properties map[string]*OptionSpec `yaml:"properties,omitempty" json:"properties,omitempty"`

	// Required lists object keys that must be present.
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`

	// AdditionalProperties allows object keys not listed in Properties.
	AdditionalProperties bool `yaml:"additionalProperties,omitempty" json:"additionalProperties,omitempty"`

	// Items constrains every element of an array value.
	Items *OptionSpec `yaml:"items,omitempty" json:"items,omitempty"`

	// OneOf accepts a value matching at least one alternative.
	OneOf []*OptionSpec `yaml:"oneOf,omitempty" json:"oneOf,omitempty"`

	// Minimum and Maximum bound numeric values.
	Minimum *float64 `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum *float64 `yaml:"maximum,omitempty" json:"maximum,omitempty"`
}

// Schema is the definition of one rule.
type Schema struct {
	// ID is the rule identifier.
	ID rules.RuleID `yaml:"-" json:"id"`

	// Description is a one-line summary.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Severities lists accepted severities. Empty means all three.
	Severities []rules.Severity `yaml:"severities,omitempty" json:"severities,omitempty"`

	// Options constrains the options sequence position by position.
	Options []*OptionSpec `yaml:"options,omitempty" json:"options,omitempty"`

	// MinOptions is the minimum number of options.
	MinOptions int `yaml:"minOptions,omitempty" json:"minOptions,omitempty"`

	// Rest, when set, accepts any number of options beyond len(Options),
	// each matching Rest.
	Rest *OptionSpec `yaml:"rest,omitempty" json:"rest,omitempty"`
}

// AcceptsSeverity reports whether s is allowed for the rule.
func (s *Schema) AcceptsSeverity(sev rules.Severity) bool {
	if len(s.Severities) == 0 {
		return sev.Valid()
	}
	for _, allowed := range s.Severities {
		if allowed == sev {
			return true
		}
	}
	return false
}

// MaxOptions returns the maximum number of options, or -1 when unbounded.
func (s *Schema) MaxOptions() int {
	if s.Rest != nil {
		return -1
	}
	return len(s.Options)
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	out.Severities = append([]rules.Severity(nil), s.Severities...)
	out.Options = cloneSpecs(s.Options)
	out.Rest = s.Rest.clone()
	return &out
}

func (o *OptionSpec) clone() *OptionSpec {
	if o == nil {
		return nil
	}
	out := *o
	if o.Enum != nil {
		out.Enum = make([]any, len(o.Enum))
		for i, v := range o.Enum {
			out.Enum[i] = rules.CopyValue(v)
		}
	}
	if o.Properties != nil {
		out.Properties = make(map[string]*OptionSpec, len(o.Properties))
		for name, prop := range o.Properties {
			out.Properties[name] = prop.clone()
		}
	}
	out.Required = append([]string(nil), o.Required...)
	out.Items = o.Items.clone()
	out.OneOf = cloneSpecs(o.OneOf)
	if o.Minimum != nil {
		v := *o.Minimum
		out.Minimum = &v
	}
	if o.Maximum != nil {
		v := *o.Maximum
		out.Maximum = &v
	}
	return &out
}

func cloneSpecs(specs []*OptionSpec) []*OptionSpec {
	if specs == nil {
		return nil
	}
	out := make([]*OptionSpec, len(specs))
	for i, spec := range specs {
		out[i] = spec.clone()
	}
	return out
}

// check verifies the schema definition itself.
func (s *Schema) check() error {
	if s.ID == "" {
		return fmt.Errorf("rule id cannot be empty")
	}
	for _, sev := range s.Severities {
		if !sev.Valid() {
			return fmt.Errorf("rule %q: invalid severity %d", s.ID, int(sev))
		}
	}
	if s.MinOptions < 0 {
		return fmt.Errorf("rule %q: minOptions must be non-negative", s.ID)
	}
	if max := s.MaxOptions(); max >= 0 && s.MinOptions > max {
		return fmt.Errorf("rule %q: minOptions %d exceeds %d declared option(s)", s.ID, s.MinOptions, max)
	}
	for i, opt := range s.Options {
		if err := opt.check(); err != nil {
			return fmt.Errorf("rule %q: options[%d]: %w", s.ID, i, err)
		}
	}
	if s.Rest != nil {
		if err := s.Rest.check(); err != nil {
			return fmt.Errorf("rule %q: rest: %w", s.ID, err)
		}
	}
	return nil
}

func (o *OptionSpec) check() error {
	if o == nil {
		return fmt.Errorf("option spec cannot be empty")
	}
	if o.Type != "" && !validTypes[o.Type] {
		return fmt.Errorf("unknown option type %q", o.Type)
	}
	if o.Minimum != nil && o.Maximum != nil && *o.Minimum > *o.Maximum {
		return fmt.Errorf("minimum %v exceeds maximum %v", *o.Minimum, *o.Maximum)
	}
	for i, v := range o.Enum {
		n, err := rules.NormalizeValue(v)
		if err != nil {
			return fmt.Errorf("enum[%d]: %w", i, err)
		}
		o.Enum[i] = n
	}
	for name, prop := range o.Properties {
		if err := prop.check(); err != nil {
			return fmt.Errorf("properties.%s: %w", name, err)
		}
	}
	if o.Items != nil {
		if err := o.Items.check(); err != nil {
			return fmt.Errorf("items: %w", err)
		}
	}
	for i, alt := range o.OneOf {
		if err := alt.check(); err != nil {
			return fmt.Errorf("oneOf[%d]: %w", i, err)
		}
	}
	return nil
}
