package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cascade"
	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/presets"
	"mercator-hq/cascade/pkg/rules"
)

var presetsCmd = &cobra.Command{
	Use:   "presets [name]",
	Short: "List built-in presets or show one",
	Long: `Without arguments, list the built-in presets a stack layer can name
with "preset:". With a name, print the settings of that preset.

Examples:
  cascade presets
  cascade presets layout-compact`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func runPresets(cmd *cobra.Command, args []string) error {
	a := current
	if len(args) == 0 {
		return a.printer.Presets(presets.All())
	}

	p, err := presets.Get(args[0])
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	settings := p.Settings()
	results := make(map[rules.RuleID]cascade.Result, len(settings))
	for id, s := range settings {
		results[id] = cascade.Result{RuleID: id, Severity: s.Severity, Options: s.Options, Source: p.Name}
	}
	return a.printer.Dump(rules.Context{}, results)
}
