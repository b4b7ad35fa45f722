package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/guidebook"
	"github.com/aretw0/guidebook/internal/presentation/tui"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/observability"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/aretw0/guidebook/pkg/runner"
	"github.com/go-chi/chi/v5"
)

// RunSession asks the pending decisions of the guidebook and runs it once.
func RunSession(ctx context.Context, opts RunOptions) error {
	opts = withDefaults(opts)
	logger := createLogger(opts.Debug)

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

	var (
		presenter ports.Presenter
		hooks     []domain.LifecycleHooks
		report    func(any) error
		output    = stdout
	)
	if opts.JSON {
		jp := runner.NewJSONPresenter(os.Stdin, stdout)
		presenter, report, output = jp, jp.Report, nil
		hooks = append(hooks, jp.Hooks())
	} else {
		tui.PrintBanner(stdout, guidebook.Version)
		presenter = runner.NewTextPresenter(os.Stdin, stdout, runner.WithRenderer(tui.NewRenderer()))
		printSystemMessage(stdout, "Profile '%s' active.", opts.Profile)
	}
	if opts.Debug {
		presenter = runner.Chain(presenter, runner.LoggingMiddleware(logger))
	}

	if opts.MetricsAddr != "" {
		metrics, err := observability.NewMetrics(nil)
		if err != nil {
			return err
		}
		hooks = append(hooks, metrics.Hooks())
		stop := serveMetrics(opts.MetricsAddr, metrics, logger)
		defer stop()
	}

	engineOpts, err := createEngineOptions(opts, logger, output, hooks...)
	if err != nil {
		return err
	}

	r := runner.NewRunner(
		runner.WithPresenter(presenter),
		runner.WithProfiles(profiles),
		runner.WithProfile(opts.Profile),
		runner.WithAssertions(assertions),
		runner.WithLogger(logger),
		runner.WithOutput(output),
		runner.WithEngineOptions(engineOpts...),
	)

	runErr := r.Run(ctx, opts.LeavesPath)
	switch {
	case runErr == nil:
		if report != nil {
			_ = report(map[string]string{"type": "finished", "profile": opts.Profile})
		}
		printSystemMessage(output, "Finished. Answers kept in profile '%s'.", opts.Profile)
	case !isInterrupted(runErr) && report != nil:
		_ = report(map[string]string{"type": "failed", "error": runErr.Error()})
	}
	return handleExecutionError(runErr)
}

// serveMetrics exposes the prometheus endpoint in the background and returns
// a function that shuts it down.
func serveMetrics(addr string, metrics *observability.Metrics, logger *slog.Logger) func() {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
