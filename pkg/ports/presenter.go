package ports

import (
	"context"

	"github.com/aretw0/guidebook/pkg/domain"
)

// Presenter asks the user to answer a decision.
// Implementations return domain.ErrInterrupted when the user aborts.
type Presenter interface {
	Decide(ctx context.Context, d domain.Decision) (domain.Answer, error)
}
