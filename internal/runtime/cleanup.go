package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/guidebook/pkg/domain"
)

// runFinallies executes cleanup tasks in the order given (most recent first).
// Every task runs even if an earlier one fails.
func (e *Engine) runFinallies(ctx context.Context, finallies []*domain.SubTask) error {
	var errs []error
	for _, st := range finallies {
		e.logger.Debug("running finally", "key", st.Key, "for", st.FinallyFor)
		if err := e.execute(ctx, st.Body); err != nil {
			errs = append(errs, fmt.Errorf("finally %s: %w", st.Key, err))
		}
	}
	return errors.Join(errs...)
}

// Close unwinds the session: pending finally tasks first, then the tracked
// subprocesses in reverse spawn order. Calling it again is a no-op.
func (e *Engine) Close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	ferr := e.runFinallies(ctx, e.memos.DrainFinallies())
	perr := e.memos.Cleanup(ctx)
	return errors.Join(ferr, perr)
}

// interrupt cleans up after a cancelled session.
func (e *Engine) interrupt(ctx context.Context) error {
	e.logger.InfoContext(ctx, "session interrupted, cleaning up", "running", e.memos.Running())
	if err := e.Close(ctx); err != nil {
		e.logger.Warn("cleanup failed", "err", err)
	}
	return domain.ErrInterrupted
}
