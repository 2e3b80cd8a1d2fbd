/*
Package cli provides output formatting, exit-code mapping and signal
handling shared by the symtex commands.

Output Formatting:

Command results render as text, JSON or CSV. Tabular results go through
the Table type so every format can carry them:

	table := &cli.Table{
		Headers: []string{"ID", "STATUS"},
		Rows:    [][]string{{"req-1", "pending"}},
	}
	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

Exit Codes:

Commands return errors; the root command maps them to process exit codes
with ExitCode. A command that needs a specific code wraps its error:

	return cli.NewExitError(cli.ExitUsage, err)

Progress Reporting:

Long exports report progress on stderr while the data streams elsewhere:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(total)
	progress.Update(done)
	progress.Finish()

Signal Handling:

SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM so
store-backed commands can stop cleanly. A second signal exits at once.
*/
package cli
