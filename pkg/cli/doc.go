/*
Package cli provides the output and process helpers used by the cascade
command.

Output Formatting:

Every command renders its result through a Printer, in text for terminals or
JSON for scripts:

	p := cli.NewPrinter(os.Stdout, cli.FormatJSON)
	if err := p.Dump(ctx, resolver.Dump(ctx)); err != nil {
		return err
	}

Failures of a load or a composition are rendered with Problems, which
understands diagnostics and document errors alike.

Exit Codes:

Commands return an *ExitError to choose the process exit code. ExitProblems
means the stack was read but is invalid; anything else that fails is
ExitUsage.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
