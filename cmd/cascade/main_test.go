package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/presets"
)

const validStack = `
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

const invalidStack = `
layers:
  - name: base
    tier: 0
    rules:
      semi-colon: error
  - name: team
    tier: 1
    rules:
      semi: error
  - name: web
    tier: 1
    rules:
      semi: warn
`

func writeStack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// useApp installs a fresh app writing to a buffer in the given format.
func useApp(t *testing.T, format cli.OutputFormat, mutate func(*config.Config)) *bytes.Buffer {
	t.Helper()
	cfg := config.Default()
	cfg.Telemetry.Logging.Level = "error"
	if mutate != nil {
		mutate(cfg)
	}

	var buf bytes.Buffer
	a, err := newApp(cfg, cli.NewPrinter(&buf, format))
	require.NoError(t, err)
	current = a
	t.Cleanup(func() { current = nil })
	return &buf
}

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

func TestCheckValidStack(t *testing.T) {
	out := useApp(t, cli.FormatText, nil)
	path := writeStack(t, validStack)

	require.NoError(t, runCheck(testCommand(), []string{path}))
	assert.True(t, strings.HasPrefix(out.String(), "ok: 2 layers, 2 rules from 1 file (fingerprint "), out.String())
}

func TestCheckInvalidStack(t *testing.T) {
	out := useApp(t, cli.FormatText, nil)
	path := writeStack(t, invalidStack)

	err := runCheck(testCommand(), []string{path})
	require.Error(t, err)
	assert.Equal(t, cli.ExitProblems, cli.ExitCode(err))
	assert.True(t, cli.IsSilent(err))

	assert.Contains(t, out.String(), `unknown_rule: unknown rule "semi-colon"`)
	assert.Contains(t, out.String(), `conflict: rule "semi" defined by 2 layers in tier 1`)
	assert.Contains(t, out.String(), "found 2 problems")
}

func TestCheckInvalidStackJSON(t *testing.T) {
	out := useApp(t, cli.FormatJSON, nil)
	path := writeStack(t, invalidStack)

	err := runCheck(testCommand(), []string{path})
	require.Error(t, err)

	var report struct {
		OK       bool          `json:"ok"`
		Problems []cli.Problem `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.OK)
	require.Len(t, report.Problems, 2)
	assert.Equal(t, "unknown_rule", report.Problems[0].Kind)
	assert.Equal(t, "conflict", report.Problems[1].Kind)
}

func TestCheckMissingDocument(t *testing.T) {
	out := useApp(t, cli.FormatText, nil)

	err := runCheck(testCommand(), []string{filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Equal(t, cli.ExitProblems, cli.ExitCode(err))
	assert.Contains(t, out.String(), "load: ")
	assert.Contains(t, out.String(), "file not found")
}

func TestCheckWithoutDocuments(t *testing.T) {
	useApp(t, cli.FormatText, nil)

	err := runCheck(testCommand(), nil)
	require.Error(t, err)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
	assert.Contains(t, err.Error(), "no stack documents given")
}

func TestCheckUsesConfiguredPaths(t *testing.T) {
	path := writeStack(t, validStack)
	out := useApp(t, cli.FormatText, func(cfg *config.Config) {
		cfg.Stack.Paths = []string{path}
	})

	require.NoError(t, runCheck(testCommand(), nil))
	assert.Contains(t, out.String(), "ok: 2 layers")
}

func TestResolve(t *testing.T) {
	path := writeStack(t, validStack)

	tests := []struct {
		name string
		flag func()
		env  string
		want string
	}{
		{
			name: "scoped layer wins",
			flag: func() { resolveFlags.path, resolveFlags.env = "web/app.js", "browser" },
			want: "semi: off\n  source:   web\n  shadowed: base\n",
		},
		{
			name: "scope needs env",
			flag: func() { resolveFlags.path, resolveFlags.env = "web/app.js", "" },
			want: "semi: [error, \"always\"]\n  source:   base\n",
		},
		{
			name: "env from config",
			flag: func() { resolveFlags.path, resolveFlags.env = "web/app.js", "" },
			env:  "browser",
			want: "semi: off\n  source:   web\n  shadowed: base\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := useApp(t, cli.FormatText, func(cfg *config.Config) {
				cfg.Stack.Env = tt.env
			})
			resolveFlags.rule = "semi"
			tt.flag()

			require.NoError(t, runResolve(testCommand(), []string{path}))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestResolveNotConfigured(t *testing.T) {
	out := useApp(t, cli.FormatText, nil)
	path := writeStack(t, validStack)
	resolveFlags.rule, resolveFlags.path, resolveFlags.env = "eqeqeq", "src/a.js", ""

	require.NoError(t, runResolve(testCommand(), []string{path}))
	assert.Equal(t, "eqeqeq: not configured for src/a.js\n", out.String())
}

func TestResolveRequiresRule(t *testing.T) {
	useApp(t, cli.FormatText, nil)
	resolveFlags.rule = ""

	err := runResolve(testCommand(), []string{"stack.yaml"})
	require.Error(t, err)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestDumpJSON(t *testing.T) {
	out := useApp(t, cli.FormatJSON, nil)
	path := writeStack(t, validStack)
	dumpFlags.path, dumpFlags.env = "src/a.js", ""

	require.NoError(t, runDump(testCommand(), []string{path}))

	var dump struct {
		Path  string `json:"path"`
		Rules []struct {
			Rule   string `json:"rule"`
			Source string `json:"source"`
		} `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &dump))
	assert.Equal(t, "src/a.js", dump.Path)
	require.Len(t, dump.Rules, 2)
	assert.Equal(t, "max-len", dump.Rules[0].Rule)
	assert.Equal(t, "semi", dump.Rules[1].Rule)
	assert.Equal(t, "base", dump.Rules[1].Source)
}

func TestPresetsCommand(t *testing.T) {
	out := useApp(t, cli.FormatText, nil)
	require.NoError(t, runPresets(testCommand(), nil))
	for _, name := range presets.Names() {
		assert.Contains(t, out.String(), name)
	}

	out = useApp(t, cli.FormatText, nil)
	require.NoError(t, runPresets(testCommand(), []string{"layout"}))
	assert.True(t, strings.HasSuffix(out.String(), "\n62 rules\n"), out.String())

	useApp(t, cli.FormatText, nil)
	err := runPresets(testCommand(), []string{"layot"})
	require.Error(t, err)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestCatalogCommand(t *testing.T) {
	out := useApp(t, cli.FormatJSON, nil)
	require.NoError(t, catalogCmd.RunE(testCommand(), nil))

	var listing struct {
		Rules []json.RawMessage `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &listing))
	assert.Len(t, listing.Rules, presets.Catalog().Len())
}

func TestCatalogCommandMergesConfiguredCatalogs(t *testing.T) {
	extra := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(extra, []byte("rules:\n  custom/no-todo:\n    description: Flag TODO comments\n"), 0o644))

	out := useApp(t, cli.FormatText, func(cfg *config.Config) {
		cfg.Catalog.Paths = []string{extra}
		cfg.Catalog.DisablePresets = true
	})
	require.NoError(t, catalogCmd.RunE(testCommand(), nil))
	assert.Contains(t, out.String(), "custom/no-todo")
	assert.Contains(t, out.String(), "\n1 rule\n")
}

func TestHistoryRecordsCompositions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	enableAudit := func(cfg *config.Config) {
		cfg.Audit.Enabled = true
		cfg.Audit.Path = dbPath
	}
	good := writeStack(t, validStack)
	bad := writeStack(t, invalidStack)

	useApp(t, cli.FormatText, enableAudit)
	require.NoError(t, runCheck(testCommand(), []string{good}))
	useApp(t, cli.FormatText, enableAudit)
	require.Error(t, runCheck(testCommand(), []string{bad}))

	out := useApp(t, cli.FormatText, enableAudit)
	historyFlags.limit = 20
	require.NoError(t, runHistory(testCommand(), nil))
	assert.Contains(t, out.String(), "success")
	assert.Contains(t, out.String(), "failure")

	cmd := testCommand()
	useApp(t, cli.FormatText, enableAudit)
	require.NoError(t, runHistoryPrune(cmd, nil))
	assert.Contains(t, cmd.OutOrStdout().(*bytes.Buffer).String(), "Pruned 0 record(s)")
}

func TestSetupRejectsUnknownFormat(t *testing.T) {
	orig := outFormat
	t.Cleanup(func() {
		outFormat = orig
		current = nil
		config.SetConfig(nil)
	})
	outFormat = "xml"

	err := setup(testCommand())
	require.Error(t, err)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	orig := outFormat
	t.Cleanup(func() { outFormat = orig })

	outFormat = "text"
	require.NoError(t, runVersion(versionCmd, nil))
	assert.Contains(t, buf.String(), "cascade "+Version)
	assert.Contains(t, buf.String(), "Go Version:")
	assert.Contains(t, buf.String(), "layout-compact")

	buf.Reset()
	outFormat = "json"
	require.NoError(t, runVersion(versionCmd, nil))
	var got struct {
		Version string   `json:"version"`
		Presets []string `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, Version, got.Version)
	assert.Equal(t, presets.Names(), got.Presets)

	outFormat = "yaml"
	err := runVersion(versionCmd, nil)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"check", "resolve", "dump", "catalog", "presets", "history", "watch", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
