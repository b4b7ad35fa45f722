/*
Package runner implements the interactive side of a guidebook run.

It is the bridge between the engine and the outside world: presenters ask the
decisions the engine cannot make on its own, the Runner binds a stored profile
to the engine and saves every answer, and the SignalManager turns Ctrl+C into a
clean interruption.

# Key Components

  - Runner: loads the profile, runs the engine, persists answers.
  - TextPresenter: numbered options on an interactive terminal.
  - JSONPresenter: decisions and replies as JSON-Lines for host processes.
  - ScriptedPresenter: fixed answers for non-interactive runs.
  - Middleware: AcceptSuggestedMiddleware, LoggingMiddleware.

# Usage

	r := runner.NewRunner(
		runner.WithProfiles(session.NewManager(file.NewStore(""))),
		runner.WithProfile("dev"),
		runner.WithPresenter(runner.NewTextPresenter(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, "./leaves.yaml"); err != nil && !errors.Is(err, domain.ErrInterrupted) {
		log.Fatal(err)
	}
*/
package runner
