package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"mercator-hq/cascade/pkg/diag"
	"mercator-hq/cascade/pkg/rules"
)

// SettingError is returned by Validate when a setting violates its schema.
type SettingError struct {
	RuleID     rules.RuleID
	Violations []diag.Violation
}

// Error implements the error interface.
func (e *SettingError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("rule %q: %s", e.RuleID, strings.Join(parts, "; "))
}

// NotFoundError is returned by Validate for a rule the catalog does not know.
type NotFoundError struct {
	RuleID rules.RuleID
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("rule %q not found in catalog", e.RuleID)
}

// ValidateSetting checks a setting against a schema and returns every
// violation found. It has no side effects.
func ValidateSetting(schema *Schema, setting rules.Setting) []diag.Violation {
	var out []diag.Violation

	if !schema.AcceptsSeverity(setting.Severity) {
		out = append(out, diag.Violation{
			Path:    "severity",
			Message: fmt.Sprintf("severity %q not accepted (allowed: %s)", setting.Severity, severityList(schema)),
		})
	}

	n := len(setting.Options)
	if n < schema.MinOptions {
		out = append(out, diag.Violation{
			Path:    "options",
			Message: fmt.Sprintf("expected at least %d option(s), got %d", schema.MinOptions, n),
		})
	}
	if max := schema.MaxOptions(); max >= 0 && n > max {
		out = append(out, diag.Violation{
			Path:    "options",
			Message: fmt.Sprintf("expected at most %d option(s), got %d", max, n),
		})
	}

	for i, value := range setting.Options {
		var spec *OptionSpec
		switch {
		case i < len(schema.Options):
			spec = schema.Options[i]
		case schema.Rest != nil:
			spec = schema.Rest
		default:
			continue
		}
		out = append(out, validateValue(fmt.Sprintf("options[%d]", i), spec, value)...)
	}

	return out
}

func validateValue(path string, spec *OptionSpec, value any) []diag.Violation {
	if len(spec.OneOf) > 0 {
		return validateOneOf(path, spec, value)
	}

	if len(spec.Enum) > 0 {
		for _, allowed := range spec.Enum {
			if rules.EqualValues(allowed, value) {
				return nil
			}
		}
		return []diag.Violation{{
			Path:    path,
			Message: fmt.Sprintf("value %s not in %s", rules.FormatValue(value), rules.FormatValue(spec.Enum)),
		}}
	}

	if !matchesType(spec.Type, value) {
		return []diag.Violation{{
			Path:    path,
			Message: fmt.Sprintf("expected %s, got %s", spec.Type, rules.KindOf(value)),
		}}
	}

	switch v := value.(type) {
	case int64:
		return checkBounds(path, spec, float64(v))
	case float64:
		return checkBounds(path, spec, v)
	case []any:
		if spec.Items == nil {
			return nil
		}
		var out []diag.Violation
		for i, item := range v {
			out = append(out, validateValue(fmt.Sprintf("%s[%d]", path, i), spec.Items, item)...)
		}
		return out
	case map[string]any:
		return validateObject(path, spec, v)
	}
	return nil
}

func validateOneOf(path string, spec *OptionSpec, value any) []diag.Violation {
	for _, alt := range spec.OneOf {
		if len(validateValue(path, alt, value)) == 0 {
			return nil
		}
	}
	shapes := make([]string, len(spec.OneOf))
	for i, alt := range spec.OneOf {
		shapes[i] = alt.describe()
	}
	return []diag.Violation{{
		Path:    path,
		Message: fmt.Sprintf("value %s matches none of: %s", rules.FormatValue(value), strings.Join(shapes, " | ")),
	}}
}

func validateObject(path string, spec *OptionSpec, obj map[string]any) []diag.Violation {
	// Objects without declared properties are free-form.
	if spec.Properties == nil {
		return nil
	}

	var out []diag.Violation
	for _, key := range spec.Required {
		if _, ok := obj[key]; !ok {
			out = append(out, diag.Violation{Path: path + "." + key, Message: "required property missing"})
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop, ok := spec.Properties[key]
		if !ok {
			if !spec.AdditionalProperties {
				out = append(out, diag.Violation{
					Path:    path + "." + key,
					Message: unknownPropertyMessage(key, spec.Properties),
				})
			}
			continue
		}
		out = append(out, validateValue(path+"."+key, prop, obj[key])...)
	}
	return out
}

func unknownPropertyMessage(key string, props map[string]*OptionSpec) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	if s := diag.Suggest(key, names); s != "" {
		return fmt.Sprintf("unknown property (did you mean %q?)", s)
	}
	return fmt.Sprintf("unknown property (allowed: %s)", strings.Join(names, ", "))
}

func matchesType(t OptionType, value any) bool {
	kind := rules.KindOf(value)
	switch t {
	case "", TypeAny:
		return kind != rules.KindInvalid
	case TypeNumber:
		return kind == rules.KindInteger || kind == rules.KindNumber
	case TypeInteger:
		return kind == rules.KindInteger
	default:
		return string(kind) == string(t)
	}
}

func checkBounds(path string, spec *OptionSpec, n float64) []diag.Violation {
	if spec.Minimum != nil && n < *spec.Minimum {
		return []diag.Violation{{Path: path, Message: fmt.Sprintf("value %s below minimum %s", formatNumber(n), formatNumber(*spec.Minimum))}}
	}
	if spec.Maximum != nil && n > *spec.Maximum {
		return []diag.Violation{{Path: path, Message: fmt.Sprintf("value %s above maximum %s", formatNumber(n), formatNumber(*spec.Maximum))}}
	}
	return nil
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// describe renders a short human form of the spec for oneOf messages.
func (o *OptionSpec) describe() string {
	if len(o.Enum) > 0 {
		return rules.FormatValue(o.Enum)
	}
	if len(o.OneOf) > 0 {
		parts := make([]string, len(o.OneOf))
		for i, alt := range o.OneOf {
			parts[i] = alt.describe()
		}
		return "(" + strings.Join(parts, " | ") + ")"
	}
	if o.Type == "" {
		return string(TypeAny)
	}
	return string(o.Type)
}

func severityList(schema *Schema) string {
	allowed := schema.Severities
	if len(allowed) == 0 {
		allowed = rules.AllSeverities
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}
