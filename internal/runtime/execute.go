package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/memo"
	"github.com/aretw0/guidebook/pkg/ports"
)

// execute runs n. Sequences stop at the first failure, parallel branches
// all run and their errors are joined.
func (e *Engine) execute(ctx context.Context, n domain.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if domain.IsNil(n) {
		return nil
	}

	switch v := n.(type) {
	case *domain.Leaf:
		return e.runLeaf(ctx, v)

	case *domain.Sequence:
		for _, s := range v.Steps {
			if err := e.execute(ctx, s); err != nil {
				return err
			}
		}
		return nil

	case *domain.TitledSteps:
		for _, s := range v.Steps {
			if err := e.execute(ctx, s.Body); err != nil {
				return fmt.Errorf("%s: %w", s.Title, err)
			}
		}
		return nil

	case *domain.Parallel:
		var errs []error
		for _, b := range v.Branches {
			if err := e.execute(ctx, b); err != nil {
				if ctx.Err() != nil {
					return err
				}
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)

	case *domain.SubTask:
		return e.runSubTask(ctx, v)

	case *domain.Choice:
		return fmt.Errorf("%w: %s", domain.ErrUnresolvedChoice, v.Context)
	}
	return fmt.Errorf("unknown node type %T", n)
}

func (e *Engine) runLeaf(ctx context.Context, l *domain.Leaf) error {
	// A leaf runs at most once per session.
	if s, ok := e.memos.Status(l.ID); ok && s.IsTerminal() {
		if s == domain.StatusError {
			return fmt.Errorf("leaf %s failed earlier", l.ID)
		}
		return nil
	}

	if e.hooks.OnLeafStart != nil {
		e.hooks.OnLeafStart(ctx, &domain.LeafEvent{
			EventBase: e.event(domain.EventLeafStart),
			LeafID:    l.ID,
			Lang:      l.Lang,
			Async:     l.Async,
		})
	}

	start := time.Now()
	var err error
	if l.Async {
		var h ports.ProcessHandle
		h, err = e.exec.Start(ctx, domain.LeafRequest(l), e.memos)
		if err == nil && h != nil {
			e.logger.Debug("leaf started", "leaf", l.ID, "process", h.ID())
		}
	} else {
		var res domain.RunResult
		res, err = e.exec.Run(ctx, domain.LeafRequest(l), e.memos)
		if err == nil && l.CaptureEnv {
			for k, v := range res.Env {
				e.memos.SetEnv(k, v)
			}
		}
	}

	if err != nil && ctx.Err() != nil {
		// Interrupted leaves are not failures and run again next time.
		return ctx.Err()
	}

	status := domain.StatusSuccess
	switch {
	case err != nil && l.Optional:
		status = domain.StatusWarning
		e.logger.Warn("optional leaf failed", "leaf", l.ID, "err", err)
	case err != nil:
		status = domain.StatusError
	}
	e.memos.SetStatus(l.ID, status)
	if status == domain.StatusSuccess && l.Validate != nil && !l.Validate.Always {
		e.memos.SetStatus(l.Validate.Key(), domain.StatusSuccess)
	}

	if e.hooks.OnLeafFinish != nil {
		e.hooks.OnLeafFinish(ctx, &domain.LeafEvent{
			EventBase: e.event(domain.EventLeafFinish),
			LeafID:    l.ID,
			Lang:      l.Lang,
			Async:     l.Async,
			Status:    status,
			Duration:  time.Since(start),
			Err:       err,
		})
	}

	if status == domain.StatusError {
		return fmt.Errorf("leaf %s: %w", l.ID, err)
	}
	return nil
}

func (e *Engine) runSubTask(ctx context.Context, st *domain.SubTask) error {
	if st.FinallyFor != "" {
		e.logger.Debug("finally registered", "key", st.Key, "for", st.FinallyFor)
		e.memos.PushFinally(st)
		return nil
	}

	idem := ""
	if st.IdempotencyGroup != "" {
		idem = domain.KeyIdempotencyPrefix + st.IdempotencyGroup
		if s, ok := e.memos.Status(idem); ok && s == domain.StatusSuccess {
			e.logger.Debug("idempotency group already ran", "group", st.IdempotencyGroup)
			return nil
		}
	}

	err := e.execute(ctx, st.Body)
	if err == nil {
		if st.Validate != nil && !st.Validate.Always {
			e.memos.SetStatus(st.Validate.Key(), domain.StatusSuccess)
		}
		if idem != "" {
			e.memos.SetStatus(idem, domain.StatusSuccess)
		}
	}
	if err != nil && st.Title != "" && ctx.Err() == nil {
		err = fmt.Errorf("%s: %w", st.Title, err)
	}

	if ctx.Err() != nil {
		// Left on the stack for the cleanup of the interrupted session.
		return err
	}
	if ferr := e.runFinallies(ctx, e.memos.PopFinally(st.Key)); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return err
}

// pending reports whether some work under nodes has not reached a terminal
// status. SubTasks already satisfied by their validation or idempotency group
// are done whatever the status of their leaves.
func pending(m *memo.Memos, nodes []domain.Node) bool {
	for _, n := range nodes {
		if pendingNode(m, n) {
			return true
		}
	}
	return false
}

func pendingNode(m *memo.Memos, n domain.Node) bool {
	switch v := n.(type) {
	case *domain.Leaf:
		s, ok := m.Status(v.ID)
		return !ok || !s.IsTerminal()
	case *domain.SubTask:
		if v.FinallyFor != "" {
			return false
		}
		if v.Validate != nil && succeeded(m, v.Validate.Key()) {
			return false
		}
		if v.IdempotencyGroup != "" && succeeded(m, domain.KeyIdempotencyPrefix+v.IdempotencyGroup) {
			return false
		}
	}
	return pending(m, domain.Children(n))
}

func succeeded(m *memo.Memos, key string) bool {
	s, ok := m.Status(key)
	return ok && s == domain.StatusSuccess
}
