package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/rules"
)

var resolveFlags struct {
	rule string
	path string
	env  string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve --rule RULE [documents...]",
	Short: "Resolve one rule for a file",
	Long: `Compose the stack and print the setting of one rule for a file and
environment, naming the layer it came from and the layers it shadows.

Examples:
  # Which "semi" applies to a test file?
  cascade resolve --rule semi --path test/app.test.ts stack.yaml

  # Plugin rules are namespaced
  cascade resolve --rule simple-import-sort/imports --env node stack.toml`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveFlags.rule, "rule", "r", "", "rule id to resolve (required)")
	resolveCmd.Flags().StringVarP(&resolveFlags.path, "path", "p", "", "file path the rule applies to")
	resolveCmd.Flags().StringVarP(&resolveFlags.env, "env", "e", "", "environment tag (defaults to stack.env)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	if resolveFlags.rule == "" {
		return cli.NewExitError(cli.ExitUsage, fmt.Errorf("--rule must be specified"))
	}

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

	id := rules.RuleID(resolveFlags.rule)
	ctx := rules.Context{Path: resolveFlags.path, Env: a.env(resolveFlags.env)}
	result, found := p.manager.Resolver().Resolve(id, ctx)
	return a.printer.Result(id, ctx, result, found)
}
