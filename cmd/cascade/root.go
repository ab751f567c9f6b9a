package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/config"
)

var (
	// Global flags
	cfgFile   string
	outFormat string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "cascade",
	Short: "Compose layered rule configuration",
	Long: `Cascade composes layered lint rule configuration.

Layers are read from YAML, TOML or CUE stack documents. Each layer belongs
to a precedence tier and may be scoped to path globs and environments.
Higher tiers override lower ones; two layers of the same tier may not
configure the same rule. Every setting is validated against the rule
catalog before the stack is accepted.

Configuration is read from --config (YAML) and CASCADE_* environment
variables. Stack documents given as arguments replace stack.paths.

Exit status is 0 on success, 1 when the stack has problems and 2 when the
command could not run.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return setup(cmd)
	},
}

// Execute runs the root command and exits with the status it selects.
func Execute() {
	err := rootCmd.Execute()
	if err != nil && !cli.IsSilent(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&outFormat, "format", "o", "text", "output format: text, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// setup loads configuration and builds the shared application state.
func setup(cmd *cobra.Command) error {
	format, err := cli.ParseFormat(outFormat)
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	cfg, err := config.Install(cfgFile, func(cfg *config.Config) {
		if logLevel != "" {
			cfg.Telemetry.Logging.Level = logLevel
		}
	})
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	a, err := newApp(cfg, cli.NewPrinter(cmd.OutOrStdout(), format))
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}
	current = a
	return nil
}
