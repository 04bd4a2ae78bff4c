/*
Package cli provides command-line helpers shared by the anvil commands.

Output Formatting:

Results are written as text, JSON or CSV. Types that implement
TextRenderer control their text form; types that implement Tabular can be
written as CSV:

	format, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

Exit Codes:

Commands return a *ViolationsError when a check or lint finds problems;
ExitCode maps it to 1 and any other error to 2.

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "rules")
	progress.Start(int64(len(rules)))
	// ...
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
