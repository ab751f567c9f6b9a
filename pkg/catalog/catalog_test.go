package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/cascade/pkg/diag"
	"mercator-hq/cascade/pkg/rules"
)

const testCatalog = `
version: "test-1"
rules:
  max-len:
    description: Enforce a maximum line length
    options:
      - type: object
        required: [code]
        properties:
          code: {type: integer, minimum: 1}
          ignoreUrls: {type: boolean}
  quotes:
    options:
      - enum: [single, double, backtick]
      - type: object
        properties:
          avoidEscape: {type: boolean}
  id-denylist:
    rest: {type: string}
  complexity:
    options:
      - oneOf:
          - type: integer
          - type: object
            properties:
              max: {type: integer}
  no-debugger:
  padding-line-between-statements:
    rest:
      type: object
      required: [blankLine, prev, next]
      properties:
        blankLine: {enum: [any, never, always]}
        prev:
          oneOf:
            - type: string
            - type: array
              items: {type: string}
        next:
          oneOf:
            - type: string
            - type: array
              items: {type: string}
  strict-only:
    severities: [off, error]
  free-form:
    options:
      - type: object
`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return reg
}

func TestParse(t *testing.T) {
	reg := newTestRegistry(t)

	if reg.Len() != 8 {
		t.Errorf("Len() = %d, want 8", reg.Len())
	}
	if reg.Label() != "test-1" {
		t.Errorf("Label() = %q, want test-1", reg.Label())
	}
	if reg.Version() != 1 {
		t.Errorf("Version() = %d, want 1", reg.Version())
	}

	schema, ok := reg.Lookup("max-len")
	if !ok {
		t.Fatal("Lookup(max-len) not found")
	}
	if schema.ID != "max-len" || schema.Description == "" {
		t.Errorf("schema = %+v", schema)
	}
	if _, ok := reg.Lookup("totally-bogus-rule"); ok {
		t.Error("Lookup(totally-bogus-rule) found, want not found")
	}

	ids := reg.RuleIDs()
	if ids[0] != "complexity" {
		t.Errorf("RuleIDs()[0] = %q, want complexity", ids[0])
	}
}

func TestParse_InvalidSchema(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown type", "rules:\n  x:\n    options:\n      - type: decimal\n"},
		{"min over max", "rules:\n  x:\n    options:\n      - {type: integer, minimum: 5, maximum: 1}\n"},
		{"minOptions over arity", "rules:\n  x:\n    minOptions: 2\n    options:\n      - {type: string}\n"},
		{"bad severity", "rules:\n  x:\n    severities: [loud]\n"},
		{"bad yaml", "rules: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if reg.Len() != 8 {
		t.Errorf("Len() = %d, want 8", reg.Len())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) error = nil, want error")
	}
}

func violations(t *testing.T, err error) []diag.Violation {
	t.Helper()
	var se *SettingError
	if !errors.As(err, &se) {
		t.Fatalf("Validate() error = %v (%T), want *SettingError", err, err)
	}
	return se.Violations
}

func TestValidate_Valid(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		id      rules.RuleID
		setting rules.Setting
	}{
		{"max-len", rules.MustSetting(rules.Error, map[string]any{"code": 80, "ignoreUrls": true})},
		{"max-len", rules.MustSetting(rules.Warn)},
		{"quotes", rules.MustSetting(rules.Error, "double", map[string]any{"avoidEscape": true})},
		{"id-denylist", rules.MustSetting(rules.Error, "err", "cb", "req", "res", "data")},
		{"complexity", rules.MustSetting(rules.Error, 10)},
		{"complexity", rules.MustSetting(rules.Error, map[string]any{"max": 10})},
		{"no-debugger", rules.MustSetting(rules.Off)},
		{"padding-line-between-statements", rules.MustSetting(rules.Error,
			map[string]any{"blankLine": "always", "prev": "*", "next": "return"},
			map[string]any{"blankLine": "any", "prev": []string{"const", "let"}, "next": []string{"const"}},
		)},
		{"strict-only", rules.MustSetting(rules.Error)},
		{"free-form", rules.MustSetting(rules.Error, map[string]any{"anything": []any{1, "x"}})},
	}

	for _, tt := range tests {
		t.Run(string(tt.id)+" "+tt.setting.String(), func(t *testing.T) {
			if err := reg.Validate(tt.id, tt.setting); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestValidate_Violations(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name     string
		id       rules.RuleID
		setting  rules.Setting
		wantPath string
		wantMsg  string
	}{
		{
			name:     "wrong type on code",
			id:       "max-len",
			setting:  rules.MustSetting(rules.Error, map[string]any{"code": "wide"}),
			wantPath: "options[0].code",
			wantMsg:  "expected integer, got string",
		},
		{
			name:     "float is not an integer",
			id:       "max-len",
			setting:  rules.MustSetting(rules.Error, map[string]any{"code": 80.5}),
			wantPath: "options[0].code",
			wantMsg:  "expected integer, got number",
		},
		{
			name:     "below minimum",
			id:       "max-len",
			setting:  rules.MustSetting(rules.Error, map[string]any{"code": 0}),
			wantPath: "options[0].code",
			wantMsg:  "below minimum 1",
		},
		{
			name:     "required missing",
			id:       "max-len",
			setting:  rules.MustSetting(rules.Error, map[string]any{"ignoreUrls": true}),
			wantPath: "options[0].code",
			wantMsg:  "required property missing",
		},
		{
			name:     "unknown property suggests",
			id:       "max-len",
			setting:  rules.MustSetting(rules.Error, map[string]any{"code": 80, "ignoreUrl": true}),
			wantPath: "options[0].ignoreUrl",
			wantMsg:  `did you mean "ignoreUrls"?`,
		},
		{
			name:     "too many options",
			id:       "max-len",
			setting:  rules.MustSetting(rules.Error, map[string]any{"code": 80}, 4),
			wantPath: "options",
			wantMsg:  "expected at most 1 option(s), got 2",
		},
		{
			name:     "enum",
			id:       "quotes",
			setting:  rules.MustSetting(rules.Error, "curly"),
			wantPath: "options[0]",
			wantMsg:  `value "curly" not in ["single","double","backtick"]`,
		},
		{
			name:     "rest item type",
			id:       "id-denylist",
			setting:  rules.MustSetting(rules.Error, "err", 7),
			wantPath: "options[1]",
			wantMsg:  "expected string, got integer",
		},
		{
			name:     "oneOf miss",
			id:       "complexity",
			setting:  rules.MustSetting(rules.Error, "ten"),
			wantPath: "options[0]",
			wantMsg:  "matches none of: integer | object",
		},
		{
			name:     "no options allowed",
			id:       "no-debugger",
			setting:  rules.MustSetting(rules.Error, "always"),
			wantPath: "options",
			wantMsg:  "expected at most 0 option(s), got 1",
		},
		{
			name:     "severity not accepted",
			id:       "strict-only",
			setting:  rules.MustSetting(rules.Warn),
			wantPath: "severity",
			wantMsg:  `severity "warn" not accepted (allowed: off, error)`,
		},
		{
			name:     "nested array item",
			id:       "padding-line-between-statements",
			setting:  rules.MustSetting(rules.Error, map[string]any{"blankLine": "sometimes", "prev": "*", "next": "*"}),
			wantPath: "options[0].blankLine",
			wantMsg:  "not in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := violations(t, reg.Validate(tt.id, tt.setting))
			for _, v := range vs {
				if v.Path == tt.wantPath && strings.Contains(v.Message, tt.wantMsg) {
					return
				}
			}
			t.Errorf("violations = %v, want %s: ...%s...", vs, tt.wantPath, tt.wantMsg)
		})
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	reg := newTestRegistry(t)
	setting := rules.MustSetting(rules.Error, "curly", map[string]any{"avoidEscape": "yes", "extra": 1})

	vs := violations(t, reg.Validate("quotes", setting))
	if len(vs) != 3 {
		t.Errorf("got %d violations, want 3: %v", len(vs), vs)
	}
}

func TestValidate_UnknownRule(t *testing.T) {
	reg := newTestRegistry(t)
	err := reg.Validate("totally-bogus-rule", rules.MustSetting(rules.Error))

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Validate() error = %T, want *NotFoundError", err)
	}
}

func TestRegistry_RegisterVersions(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Schema{ID: "semi", Options: []*OptionSpec{{Enum: []any{"always", "never"}}}})
	reg.MustRegister(&Schema{ID: "eqeqeq"})

	if reg.Version() != 2 {
		t.Errorf("Version() = %d, want 2", reg.Version())
	}
	if err := reg.Register(&Schema{ID: ""}); err == nil {
		t.Error("Register(empty id) error = nil, want error")
	}
	if reg.Version() != 2 {
		t.Errorf("failed Register bumped version to %d", reg.Version())
	}

	other := NewRegistry()
	other.MustRegister(&Schema{ID: "curly"})
	if err := reg.Merge(other); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if reg.Len() != 3 {
		t.Errorf("Len() after Merge = %d, want 3", reg.Len())
	}
}

func TestRegistry_SchemasAreCopied(t *testing.T) {
	schema := &Schema{ID: "semi", Options: []*OptionSpec{{Enum: []any{"always", "never"}}}}
	reg := NewRegistry()
	reg.MustRegister(schema)
	always := rules.MustSetting(rules.Error, "always")

	// Changing what was registered does not reach the registry.
	schema.Options[0].Enum[0] = "sometimes"
	schema.Severities = []rules.Severity{rules.Off}
	if err := reg.Validate("semi", always); err != nil {
		t.Fatalf("Validate() after changing the argument = %v", err)
	}

	// Neither does changing what Lookup returned.
	got, ok := reg.Lookup("semi")
	if !ok {
		t.Fatal("Lookup(semi) ok = false")
	}
	got.Options[0].Enum = nil
	got.Options = append(got.Options, &OptionSpec{Type: TypeString})
	if err := reg.Validate("semi", always); err != nil {
		t.Errorf("Validate() after changing a looked-up schema = %v", err)
	}
	if err := reg.Validate("semi", rules.MustSetting(rules.Error, "always", "extra")); err == nil {
		t.Error("Validate(two options) error = nil, the lookup copy leaked into the registry")
	}

	// Merged schemas are independent of their source registry.
	merged := NewRegistry()
	if err := merged.Merge(reg); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	a, _ := reg.Lookup("semi")
	b, _ := merged.Lookup("semi")
	if a == b || a.Options[0] == b.Options[0] {
		t.Error("Lookup returned shared schema pointers")
	}
}

func BenchmarkValidate(b *testing.B) {
	reg, err := Parse([]byte(testCatalog))
	if err != nil {
		b.Fatal(err)
	}
	setting := rules.MustSetting(rules.Error, map[string]any{"code": 80, "ignoreUrls": true})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = reg.Validate("max-len", setting)
	}
}
