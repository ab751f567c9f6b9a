package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/presets"
	"mercator-hq/cascade/pkg/telemetry/health"
)

// Set with -ldflags "-X main.Version=...".
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// buildInfo is what both the version command and the /version endpoint report.
func buildInfo() health.VersionInfo {
	return health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
		GoVersion: runtime.Version(),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the build version, commit and date, and the presets compiled into
this binary. Neither configuration nor stack documents are read.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(outFormat)
	if err != nil {
		return cli.NewExitError(cli.ExitUsage, err)
	}

	info := buildInfo()
	names := presets.Names()
	out := cmd.OutOrStdout()

	if format == cli.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			health.VersionInfo
			Platform string   `json:"platform"`
			Presets  []string `json:"presets"`
		}{info, runtime.GOOS + "/" + runtime.GOARCH, names})
	}

	fmt.Fprintf(out, "cascade %s\n", info.Version)
	fmt.Fprintf(out, "Git Commit: %s\n", info.Commit)
	fmt.Fprintf(out, "Build Date: %s\n", info.BuildTime)
	fmt.Fprintf(out, "Go Version: %s (%s/%s)\n", info.GoVersion, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "Presets:    %s\n", strings.Join(names, ", "))
	return nil
}
