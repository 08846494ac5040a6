/*
Package cli provides command-line interface utilities for doorman.

The cli package includes output formatters, progress reporters, and common CLI
helpers used by the doorman command.

Output Formatting:

The cli package supports multiple output formats (text, JSON, CSV) for
displaying command results:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Progress Reporting:

For batches of simulated games, use the counting reporter:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(totalGames)
	for i := 0; i < totalGames; i++ {
		// Play one game
		progress.Update(int64(i + 1))
	}
	progress.Finish()

For a single live game, GameProgress tracks occupancy against capacity
and the rejection budget:

	progress := cli.NewGameProgress(os.Stdout, capacity, budget)
	// from the driver's progress callback:
	progress.Update(admitted, rejected)
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
