package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/guidebook"
	"github.com/aretw0/guidebook/internal/presentation/tui"
	"github.com/aretw0/guidebook/pkg/adapters/file"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/runner"
)

// RunWatch runs the guidebook in development mode: whenever a leaf file
// changes the current run is stopped and started over on the same profile,
// so answers given so far are kept.
func RunWatch(ctx context.Context, opts RunOptions) error {
	opts = withDefaults(opts)
	logger := createLogger(opts.Debug)
	tui.PrintBanner(stdout, guidebook.Version)

	signals := runner.NewSignalManagerFrom(ctx)
	defer signals.Stop()
	ctx = signals.Context()

	assertions, err := ParseAssertions(opts.Assertions)
	if err != nil {
		return err
	}
	profiles, closeStore, err := OpenProfiles(opts.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close profile store", "err", err)
		}
	}()
	if opts.Fresh {
		if err := profiles.Delete(ctx, opts.Profile); err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
			return fmt.Errorf("failed to reset profile %s: %w", opts.Profile, err)
		}
	}

	changes, err := file.NewLoader(opts.LeavesPath).Watch(ctx)
	if err != nil {
		return err
	}

	engineOpts, err := createEngineOptions(opts, logger, stdout)
	if err != nil {
		return err
	}

	// One presenter for every iteration, so stdin has a single reader.
	presenter := runner.NewTextPresenter(os.Stdin, stdout, runner.WithRenderer(tui.NewRenderer()))
	r := runner.NewRunner(
		runner.WithPresenter(presenter),
		runner.WithProfiles(profiles),
		runner.WithProfile(opts.Profile),
		runner.WithAssertions(assertions),
		runner.WithLogger(logger),
		runner.WithOutput(stdout),
		runner.WithEngineOptions(engineOpts...),
	)

	logger.Info("starting watcher", "path", opts.LeavesPath, "profile", opts.Profile)
	printSystemMessage(stdout, "Watching '%s' with profile '%s'.", opts.LeavesPath, opts.Profile)

	for {
		reload, err := watchIteration(ctx, r, opts.LeavesPath, changes)
		if err != nil || !reload {
			return err
		}
		logger.Info("watcher restarting")
	}
}

// watchIteration runs once and reports whether the watcher should start over.
func watchIteration(ctx context.Context, r *runner.Runner, leavesPath string, changes <-chan string) (bool, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.Run(runCtx, leavesPath)
	}()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return false, nil
	case path, ok := <-changes:
		cancel()
		<-done
		if ok {
			printSystemMessage(stdout, "Change detected in '%s'.", path)
		}
		return ok, nil
	case err := <-done:
		switch {
		case err == nil:
			printSystemMessage(stdout, "Finished.")
		case isInterrupted(err):
			// exit, quit or closed input
			return false, nil
		default:
			r.Logger.Error("runtime error", "err", err)
			printSystemMessage(stdout, "Run failed: %v", err)
		}
	}

	printSystemMessage(stdout, "Waiting for changes...")
	select {
	case <-ctx.Done():
		return false, nil
	case path, ok := <-changes:
		if ok {
			printSystemMessage(stdout, "Change detected in '%s'.", path)
		}
		return ok, nil
	}
}
