package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the rules settings are validated against",
	Long: `Print every rule of the effective catalog: the built-in preset rules
(unless catalog.disable_presets is set) merged with catalog.paths.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		reg, err := a.catalog()
		if err != nil {
			return cli.NewExitError(cli.ExitUsage, err)
		}
		return a.printer.Catalog(reg)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
