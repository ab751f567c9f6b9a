package rules

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity is how a triggered rule is reported.
type Severity int

const (
	// Off disables the rule.
	Off Severity = iota
	// Warn reports violations without failing the run.
	Warn
	// Error reports violations and fails the run.
	Error
)

// AllSeverities lists every severity in ascending order.
var AllSeverities = []Severity{Off, Warn, Error}

// String returns the canonical lowercase name.
func (s Severity) String() string {
	switch s {
	case Off:
		return "off"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return s >= Off && s <= Error
}

// ParseSeverity parses "off", "warn" or "error". The numeric shorthands
// "0", "1" and "2" are accepted as well.
func ParseSeverity(text string) (Severity, error) {
	switch strings.TrimSpace(text) {
	case "off", "0":
		return Off, nil
	case "warn", "1":
		return Warn, nil
	case "error", "2":
		return Error, nil
	}
	return Off, fmt.Errorf("unknown severity %q (want off, warn or error)", text)
}

// SeverityFromValue converts a normalized option value into a Severity. Only
// strings and the integers 0, 1 and 2 are accepted.
func SeverityFromValue(v any) (Severity, error) {
	switch x := v.(type) {
	case string:
		return ParseSeverity(x)
	case int64:
		s := Severity(x)
		if !s.Valid() {
			return Off, fmt.Errorf("unknown severity %d (want 0, 1 or 2)", x)
		}
		return s, nil
	default:
		return Off, fmt.Errorf("severity must be a string or integer, got %s", KindOf(v))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalYAML accepts both the names and the numeric shorthands.
func (s *Severity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: severity must be a scalar", node.Line)
	}
	parsed, err := ParseSeverity(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = parsed
	return nil
}
