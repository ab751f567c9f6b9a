package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
)

var checkCmd = &cobra.Command{
	Use:   "check [documents...]",
	Short: "Validate and compose a stack",
	Long: `Load the stack documents and everything they include, validate every
setting against the catalog and reject same-tier conflicts.

All problems are reported together. The exit status is 1 when any is found.

Examples:
  # Check a stack
  cascade check stack.yaml

  # Check the configured stack, JSON output for CI
  cascade check --config cascade.yaml --format json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	a := current
	paths, err := a.stackPaths(args)
	if err != nil {
		return err
	}

	p, err := a.newPipeline(paths, pipelineOptions{})
	if err != nil {
		return err
	}
	defer p.Close()

	c, err := p.manager.Reload(cmd.Context())
	if err != nil {
		return a.problems(err)
	}

	return a.printer.Summary(cli.Summary{
		Files:       p.manager.Files(),
		Layers:      c.Len(),
		Rules:       len(c.RuleIDs()),
		Generation:  c.Generation(),
		Fingerprint: c.Fingerprint(),
	})
}
