/*
Package cli provides helpers shared by the covenant commands.

Output formatting renders evaluation results and evidence records as
text, JSON or CSV:

	format, err := cli.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, results); err != nil {
		return err
	}

Exit codes distinguish configuration problems (2) and --fail-on decisions
(3) from other failures (1); see ExitCode.

SetupSignalHandler returns a context cancelled on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
