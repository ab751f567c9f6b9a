package rules

import (
	"fmt"
	"strings"
)

// Setting is the severity and options a layer assigns to one rule.
type Setting struct {
	Severity Severity
	Options  []any
}

// NewSetting builds a Setting from raw option values, normalizing them.
func NewSetting(severity Severity, options ...any) (Setting, error) {
	if !severity.Valid() {
		return Setting{}, fmt.Errorf("invalid severity %d", int(severity))
	}
	normalized, err := NormalizeOptions(options)
	if err != nil {
		return Setting{}, err
	}
	return Setting{Severity: severity, Options: normalized}, nil
}

// MustSetting is like NewSetting but panics on error. It is intended for
// tables of built-in settings and tests.
func MustSetting(severity Severity, options ...any) Setting {
	s, err := NewSetting(severity, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// Clone returns a deep copy of the setting.
func (s Setting) Clone() Setting {
	var options []any
	if s.Options != nil {
		options = make([]any, len(s.Options))
		for i, opt := range s.Options {
			options[i] = CopyValue(opt)
		}
	}
	return Setting{Severity: s.Severity, Options: options}
}

// Equal reports whether two settings have the same severity and options.
func (s Setting) Equal(other Setting) bool {
	if s.Severity != other.Severity || len(s.Options) != len(other.Options) {
		return false
	}
	for i := range s.Options {
		if !EqualValues(s.Options[i], other.Options[i]) {
			return false
		}
	}
	return true
}

// String renders the setting in the tuple form used by rule tables, e.g.
// `error` or `[error, {"code":80}]`.
func (s Setting) String() string {
	if len(s.Options) == 0 {
		return s.Severity.String()
	}
	parts := make([]string, 0, len(s.Options)+1)
	parts = append(parts, s.Severity.String())
	for _, opt := range s.Options {
		parts = append(parts, FormatValue(opt))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ParseSetting converts the tuple form used by rule tables into a Setting.
// raw is either a bare severity (`"error"`, `2`) or a sequence whose first
// element is the severity and whose remaining elements are options.
func ParseSetting(raw any) (Setting, error) {
	v, err := NormalizeValue(raw)
	if err != nil {
		return Setting{}, err
	}

	switch x := v.(type) {
	case string, int64:
		sev, err := SeverityFromValue(x)
		if err != nil {
			return Setting{}, err
		}
		return Setting{Severity: sev}, nil
	case []any:
		if len(x) == 0 {
			return Setting{}, fmt.Errorf("setting list cannot be empty")
		}
		sev, err := SeverityFromValue(x[0])
		if err != nil {
			return Setting{}, err
		}
		var options []any
		if len(x) > 1 {
			options = x[1:]
		}
		return Setting{Severity: sev, Options: options}, nil
	default:
		return Setting{}, fmt.Errorf("setting must be a severity or [severity, options...], got %s", KindOf(v))
	}
}
