package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/guidebook/pkg/domain"
)

// LoggingHooks audits every lifecycle event to logger at debug level.
// Leaf failures are logged as warnings.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnLeafStart: func(ctx context.Context, e *domain.LeafEvent) {
			logger.DebugContext(ctx, "leaf start", "leaf", e.LeafID, "lang", e.Lang, "async", e.Async)
		},
		OnLeafFinish: func(ctx context.Context, e *domain.LeafEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "leaf failed", "leaf", e.LeafID, "status", e.Status, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "leaf finish", "leaf", e.LeafID, "status", e.Status, "duration", e.Duration)
		},
		OnValidate: func(ctx context.Context, e *domain.ValidateEvent) {
			logger.DebugContext(ctx, "validated", "key", e.Key, "status", e.Status, "cached", e.Cached)
		},
		OnExpand: func(ctx context.Context, e *domain.ExpandEvent) {
			logger.DebugContext(ctx, "expanded", "expression", e.Expression, "options", e.Options, "failed", e.Failed)
		},
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			logger.DebugContext(ctx, "decision", "context", e.Context, "answer", e.Answer)
		},
	}
}
