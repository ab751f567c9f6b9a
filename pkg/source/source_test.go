package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/cascade/pkg/audit"
	"mercator-hq/cascade/pkg/compose"
	"mercator-hq/cascade/pkg/diag"
	"mercator-hq/cascade/pkg/presets"
	"mercator-hq/cascade/pkg/rules"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// replaceFile swaps content in with a rename so a watcher never sees a
// half-written document.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

const yamlDoc = `
layers:
  - name: base
    tier: 0
    rules:
      semi: [error, always]
      max-len: [warn, {code: 100}]
  - name: web
    tier: 1
    scope:
      globs: ["web/**"]
      envs: [browser]
    rules:
      semi: off
`

const tomlDoc = `
[[layers]]
name = "base"
tier = 0

[layers.rules]
semi = ["error", "always"]
max-len = ["warn", { code = 100 }]

[[layers]]
name = "web"
tier = 1
scope = { globs = ["web/**"], envs = ["browser"] }
rules = { semi = "off" }
`

const cueDoc = `
layers: [{
	name: "base"
	tier: 0
	rules: {
		semi: ["error", "always"]
		"max-len": ["warn", {code: 100}]
	}
}, {
	name: "web"
	tier: 1
	scope: {globs: ["web/**"], envs: ["browser"]}
	rules: semi: "off"
}]
`

func TestParseDocumentFormats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{name: "yaml", format: FormatYAML, data: yamlDoc},
		{name: "toml", format: FormatTOML, data: tomlDoc},
		{name: "cue", format: FormatCUE, data: cueDoc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument("stack."+tt.name, tt.format, []byte(tt.data))
			require.NoError(t, err)
			require.Len(t, doc.Layers, 2)

			base := doc.Layers[0]
			assert.Equal(t, "base", base.Name)
			assert.Equal(t, 0, base.Tier)
			assert.Equal(t, 0, base.Order)
			assert.True(t, base.Rules["semi"].Equal(rules.MustSetting(rules.Error, "always")))
			assert.True(t, base.Rules["max-len"].Equal(rules.MustSetting(rules.Warn, map[string]any{"code": 100})),
				"max-len = %s", base.Rules["max-len"])

			web := doc.Layers[1]
			assert.Equal(t, 1, web.Tier)
			assert.Equal(t, 1, web.Order)
			assert.Equal(t, []string{"web/**"}, web.Scope.Globs)
			assert.Equal(t, []string{"browser"}, web.Scope.Envs)
			assert.Equal(t, rules.Off, web.Rules["semi"].Severity)
		})
	}
}

func TestParseDocumentCollectsErrors(t *testing.T) {
	data := `
layers:
  - name: base
    tiers: 0
    rules:
      semi: [fatal]
      eqeqeq: {always: true}
  - tier: 1
    scope:
      globs: [7]
  - name: ok
    tier: zero
`
	_, err := ParseDocument("bad.yaml", FormatYAML, []byte(data))
	var list *ErrorList
	require.ErrorAs(t, err, &list)

	fields := make(map[string]string)
	for _, e := range list.Errors {
		var pe *ParseError
		require.ErrorAs(t, e, &pe)
		fields[pe.Field] = pe.Message
	}
	assert.Contains(t, fields["layers[0].tiers"], `did you mean "tier"`)
	assert.Contains(t, fields, "layers[0].tier")
	assert.Contains(t, fields, "layers[0].rules.semi")
	assert.Contains(t, fields, "layers[0].rules.eqeqeq")
	assert.Contains(t, fields, "layers[1]")
	assert.Contains(t, fields, "layers[1].scope.globs[0]")
	assert.Contains(t, fields, "layers[2].tier")
	assert.Len(t, list.Errors, 7)
}

func TestParseDocumentKeepsLayerIndex(t *testing.T) {
	doc, err := ParseDocument("stack.yaml", FormatYAML, []byte(`
layers:
  - {name: broken}
  - {preset: layout, tier: 0, order: 5}
`))
	var list *ErrorList
	require.ErrorAs(t, err, &list)
	require.Len(t, doc.Layers, 1)

	decl := doc.Layers[0]
	assert.Equal(t, "layout", decl.Preset)
	assert.Equal(t, 1, decl.Index)
	assert.Equal(t, 5, decl.Order)
}

func TestParseDocumentSyntaxError(t *testing.T) {
	_, err := ParseDocument("bad.cue", FormatCUE, []byte(`layers: [{name: }]`))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.cue", pe.File)
	assert.Error(t, pe.Cause)
}

func TestParseDocumentEmpty(t *testing.T) {
	doc, err := ParseDocument("empty.yaml", FormatYAML, nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Layers)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.toml": FormatTOML,
		"a.cue":  FormatCUE,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("a.json")
	assert.Error(t, err)
}

func TestLoaderIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared/base.toml", `
[[layers]]
name = "base"
tier = 0
rules = { semi = ["error", "always"] }
`)
	writeFile(t, dir, "shared/extra.cue", `
include: ["base.toml"]
layers: [{name: "extra", tier: 0, order: 1, rules: eqeqeq: ["error", "always"]}]
`)
	root := writeFile(t, dir, "stack.yaml", `
include: [shared/extra.cue, shared/base.toml]
layers:
  - name: team
    tier: 1
    rules:
      semi: [error, never]
`)

	res, err := NewLoader(nil).Load(root)
	require.NoError(t, err)

	var names []string
	for _, l := range res.Stack.Layers() {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"base", "extra", "team"}, names)

	require.Len(t, res.Files, 3)
	assert.Equal(t, "base.toml", filepath.Base(res.Files[0]))
	assert.Equal(t, "extra.cue", filepath.Base(res.Files[1]))
	assert.Equal(t, root, res.Files[2])
}

func TestLoaderIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	a := writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")

	_, err := NewLoader(nil).Load(a)
	var inc *IncludeError
	require.ErrorAs(t, err, &inc)
	require.Len(t, inc.Cycle, 3)
	assert.Equal(t, inc.Cycle[0], inc.Cycle[2])
	assert.Contains(t, err.Error(), "circular include")
}

func TestLoaderIncludeDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.yaml", "layers: [{name: c, tier: 0}]\n")
	writeFile(t, dir, "b.yaml", "include: [c.yaml]\n")
	a := writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")

	_, err := NewLoader(&LoaderConfig{MaxIncludeDepth: 1}).Load(a)
	var inc *IncludeError
	require.ErrorAs(t, err, &inc)
	assert.Contains(t, inc.Message, "exceeds maximum 1")

	_, err = NewLoader(&LoaderConfig{MaxIncludeDepth: 2}).Load(a)
	assert.NoError(t, err)
}

func TestLoaderMissingInclude(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "include: [missing.yaml]\n")

	_, err := NewLoader(nil).Load(a)
	var inc *IncludeError
	require.ErrorAs(t, err, &inc)
	var load *LoadError
	require.ErrorAs(t, err, &load)
	assert.Equal(t, "file not found", load.Message)
}

func TestLoaderPresets(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "stack.yaml", `
layers:
  - preset: layout
    tier: 0
  - preset: layout-compact
    name: web-layout
    tier: 1
    scope: {globs: ["web/**"]}
    rules:
      semi: [error, never]
`)

	st, err := NewLoader(nil).LoadStack(root)
	require.NoError(t, err)

	base, ok := st.Layer("layout")
	require.True(t, ok)
	assert.Equal(t, 62, base.Len())

	web, ok := st.Layer("web-layout")
	require.True(t, ok)
	semi, _ := web.Setting("semi")
	assert.True(t, semi.Equal(rules.MustSetting(rules.Error, "never")))
	indent, _ := web.Setting("indent")
	assert.Equal(t, int64(2), indent.Options[0])

	c, err := compose.Compose(st, presets.Catalog())
	require.NoError(t, err)
	r, ok := c.Resolve("indent", rules.Context{Path: "web/app.js"})
	require.True(t, ok)
	assert.Equal(t, "web-layout", r.Source)
	assert.Equal(t, []string{"layout"}, r.Shadowed)
}

func TestLoaderUnknownPreset(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "stack.yaml", "layers: [{preset: layuot, tier: 0}]\n")

	_, err := NewLoader(nil).Load(root)
	var list *ErrorList
	require.ErrorAs(t, err, &list)
	assert.Contains(t, err.Error(), `did you mean "layout"`)
}

func TestLoaderRejectsNonFiniteOptions(t *testing.T) {
	for _, value := range []string{".inf", "-.inf", ".nan"} {
		t.Run(value, func(t *testing.T) {
			dir := t.TempDir()
			root := writeFile(t, dir, "stack.yaml",
				"layers:\n  - name: base\n    tier: 0\n    rules:\n      indent: [error, 4, {SwitchCase: "+value+"}]\n")

			st, err := NewLoader(nil).LoadStack(root)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Nil(t, st)
			assert.Equal(t, root, pe.File)
			assert.ErrorContains(t, pe.Cause, "not finite")
		})
	}
}

func TestLoaderStackDefects(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "stack.yaml", `
layers:
  - {name: dup, tier: 0}
  - {name: dup, tier: -1}
`)

	_, err := NewLoader(nil).Load(root)
	var diags *diag.Diagnostics
	require.ErrorAs(t, err, &diags)
	assert.True(t, diags.HasKind(diag.KindStack))
}

func TestLoaderErrorsAcrossDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "layers: [{name: base}]\n")
	root := writeFile(t, dir, "stack.yaml", "include: [base.yaml]\nlayers: [{name: team, tier: 1, rules: {semi: [loud]}}]\n")

	_, err := NewLoader(nil).Load(root)
	var list *ErrorList
	require.ErrorAs(t, err, &list)
	assert.Len(t, list.Errors, 2)
}

func TestLoaderUnsupportedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stack.json", "{}")

	_, err := NewLoader(nil).Load(path)
	var load *LoadError
	require.ErrorAs(t, err, &load)
}

type reloadCounter struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *reloadCounter) RecordReload(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *reloadCounter) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

type memoryAuditor struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (a *memoryAuditor) Record(_ context.Context, rec *audit.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

const goodStack = `
layers:
  - name: base
    tier: 0
    rules:
      semi: [error, always]
`

const badStack = `
layers:
  - name: base
    tier: 0
    rules:
      semi: [error, sometimes]
`

func newManager(t *testing.T, path string, opts *ManagerOptions) *Manager {
	t.Helper()
	engine := compose.NewEngine(presets.Catalog(), nil)
	m, err := NewManager(NewLoader(nil), engine, []string{path}, opts)
	require.NoError(t, err)
	return m
}

func TestManagerReloadKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stack.yaml", goodStack)

	metrics := &reloadCounter{}
	auditor := &memoryAuditor{}
	m := newManager(t, path, &ManagerOptions{Metrics: metrics, Audit: auditor})

	first, err := m.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, m.Current())
	assert.NoError(t, m.LastError())
	assert.False(t, m.LastReload().IsZero())

	r, ok := m.Resolver().Resolve("semi", rules.Context{Path: "a.js"})
	require.True(t, ok)
	assert.Equal(t, []any{"always"}, r.Options)

	writeFile(t, dir, "stack.yaml", badStack)
	_, err = m.Reload(context.Background())
	var diags *diag.Diagnostics
	require.ErrorAs(t, err, &diags)
	assert.True(t, diags.HasKind(diag.KindValidation))
	assert.Same(t, first, m.Current(), "failed reload replaced the cascade")
	assert.Equal(t, err, m.LastError())

	writeFile(t, dir, "stack.yaml", "layers: [\n")
	_, err = m.Reload(context.Background())
	assert.Error(t, err)
	assert.Same(t, first, m.Current())

	assert.Equal(t, []string{ReloadSuccess, ReloadFailure, ReloadFailure}, metrics.snapshot())

	// The syntax error never reached composition, so only two compositions
	// were audited.
	require.Len(t, auditor.records, 2)
	assert.Equal(t, compose.OutcomeSuccess, auditor.records[0].Outcome)
	assert.Equal(t, first.Generation(), auditor.records[0].Generation)
	assert.Equal(t, []string{"base"}, auditor.records[0].Layers)
	assert.NotEmpty(t, auditor.records[0].ReloadID)
	assert.Equal(t, compose.OutcomeFailure, auditor.records[1].Outcome)
	assert.Equal(t, 1, auditor.records[1].Diagnostics["validation"])
}

func TestManagerReloadLogsCounts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stack.yaml", `
layers:
  - name: base
    tier: 0
    rules:
      semi: [error, always]
      no-debugger: error
  - name: team
    tier: 1
    rules:
      semi: off
`)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := newManager(t, path, &ManagerOptions{Logger: logger})
	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e["msg"] == "stack reloaded" {
			entry = e
		}
	}
	require.NotNil(t, entry, "no reload line in %s", buf.String())
	assert.Equal(t, float64(2), entry["layers"])
	assert.Equal(t, float64(2), entry["rules"])
}

func TestManagerSwapInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stack.yaml", goodStack)
	m := newManager(t, path, nil)

	_, err := m.Reload(context.Background())
	require.NoError(t, err)
	_, ok := m.Resolver().Resolve("semi", rules.Context{Path: "a.js"})
	require.True(t, ok)

	writeFile(t, dir, "stack.yaml", `
layers:
  - name: base
    tier: 0
    rules:
      semi: [warn, never]
`)
	second, err := m.Reload(context.Background())
	require.NoError(t, err)

	r, ok := m.Resolver().Resolve("semi", rules.Context{Path: "a.js"})
	require.True(t, ok)
	assert.Equal(t, rules.Warn, r.Severity)
	assert.Equal(t, second.Generation(), m.Resolver().Cache().Generation())
}

func TestNewManagerErrors(t *testing.T) {
	engine := compose.NewEngine(presets.Catalog(), nil)
	_, err := NewManager(nil, engine, []string{"a.yaml"}, nil)
	assert.Error(t, err)
	_, err = NewManager(NewLoader(nil), nil, []string{"a.yaml"}, nil)
	assert.Error(t, err)
	_, err = NewManager(NewLoader(nil), engine, nil, nil)
	assert.Error(t, err)
}

func TestManagerWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stack.yaml", goodStack)
	m := newManager(t, path, &ManagerOptions{Debounce: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	require.Eventually(t, func() bool { return m.Current() != nil }, 5*time.Second, 10*time.Millisecond)
	first := m.Current().Generation()

	// A broken edit is ignored.
	replaceFile(t, path, badStack)
	require.Eventually(t, func() bool { return m.LastError() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, first, m.Current().Generation())

	replaceFile(t, path, `
layers:
  - name: base
    tier: 0
    rules:
      semi: [warn, never]
`)
	require.Eventually(t, func() bool {
		r, ok := m.Resolver().Resolve("semi", rules.Context{Path: "a.js"})
		return ok && r.Severity == rules.Warn
	}, 5*time.Second, 10*time.Millisecond)
	assert.Greater(t, m.Current().Generation(), first)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestDebouncer(t *testing.T) {
	var (
		mu      sync.Mutex
		flushes [][]string
	)
	d := NewDebouncer(20*time.Millisecond, func(paths []string) {
		mu.Lock()
		flushes = append(flushes, paths)
		mu.Unlock()
	})
	for _, p := range []string{"/s/team.yaml", "/s/base.yaml", "/s/team.yaml"} {
		d.Add(p)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushes) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, [][]string{{"/s/base.yaml", "/s/team.yaml"}}, flushes)
	mu.Unlock()

	d.Stop()
	d.Add("/s/base.yaml")
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, flushes, 1, "flush ran after Stop")
	mu.Unlock()
}

func TestErrorListFormatting(t *testing.T) {
	var list ErrorList
	assert.NoError(t, list.ToError())

	list.Add(&ParseError{File: "a.yaml", Field: "layers[0].tier", Message: "required"})
	assert.Equal(t, "a.yaml: layers[0].tier: required", list.Error())

	list.Add(errors.New("second"))
	assert.Contains(t, list.Error(), "2 errors occurred")
}
