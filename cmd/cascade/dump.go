package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/rules"
)

var dumpFlags struct {
	path string
	env  string
}

var dumpCmd = &cobra.Command{
	Use:   "dump [documents...]",
	Short: "Print every effective rule for a file",
	Long: `Compose the stack and print the effective setting of every rule that
applies to a file and environment, sorted by rule id.

Examples:
  cascade dump --path src/app.ts stack.yaml
  cascade dump --path scripts/build.js --env node --format json stack.yaml`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&dumpFlags.path, "path", "p", "", "file path to resolve for")
	dumpCmd.Flags().StringVarP(&dumpFlags.env, "env", "e", "", "environment tag (defaults to stack.env)")
}

func runDump(cmd *cobra.Command, args []string) error {
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

	if _, err := p.manager.Reload(cmd.Context()); err != nil {
		return a.problems(err)
	}

	ctx := rules.Context{Path: dumpFlags.path, Env: a.env(dumpFlags.env)}
	return a.printer.Dump(ctx, p.manager.Resolver().Dump(ctx))
}
