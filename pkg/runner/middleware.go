package runner

import (
	"context"
	"log/slog"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
)

// PresenterFunc adapts a function to ports.Presenter.
type PresenterFunc func(ctx context.Context, d domain.Decision) (domain.Answer, error)

// Decide calls f.
func (f PresenterFunc) Decide(ctx context.Context, d domain.Decision) (domain.Answer, error) {
	return f(ctx, d)
}

// Middleware wraps a Presenter to add behavior.
type Middleware func(ports.Presenter) ports.Presenter

// Chain wraps p with mws. The first middleware is the outermost one.
func Chain(p ports.Presenter, mws ...Middleware) ports.Presenter {
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return p
}

// AcceptSuggestedMiddleware answers with the previously stored answer when it
// still names existing options, without asking.
func AcceptSuggestedMiddleware() Middleware {
	return func(next ports.Presenter) ports.Presenter {
		return PresenterFunc(func(ctx context.Context, d domain.Decision) (domain.Answer, error) {
			if ValidSuggestion(d) {
				return domain.Answer{Value: d.Suggested}, nil
			}
			return next.Decide(ctx, d)
		})
	}
}

// LoggingMiddleware logs every decision and its answer at debug level.
// Form answers are not logged since they may hold secrets.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.Presenter) ports.Presenter {
		return PresenterFunc(func(ctx context.Context, d domain.Decision) (domain.Answer, error) {
			logger.DebugContext(ctx, "decision presented", "context", d.Context, "options", len(d.Options))
			a, err := next.Decide(ctx, d)
			if err != nil {
				logger.DebugContext(ctx, "decision failed", "context", d.Context, "err", err)
				return a, err
			}
			if d.Mode == domain.ChoiceForm {
				logger.DebugContext(ctx, "decision answered", "context", d.Context)
			} else {
				logger.DebugContext(ctx, "decision answered", "context", d.Context, "answer", a.Value)
			}
			return a, nil
		})
	}
}
