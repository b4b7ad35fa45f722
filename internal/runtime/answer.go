package runtime

import (
	"fmt"

	"github.com/aretw0/guidebook/internal/optimizer"
	"github.com/aretw0/guidebook/pkg/domain"
)

// checkAnswer reports whether answer resolves c the way the optimizer would.
// An answer that does not resolve c would be asked again forever.
func checkAnswer(c *domain.Choice, answer domain.Answer) error {
	trial := domain.NewChoiceState("")
	trial.Set(c.Context, answer.Value, true)

	out := optimizer.CollapseMadeChoices(c, trial)
	if domain.IsNil(out) || domain.IsChoice(out) {
		return fmt.Errorf("%w: answer %q does not resolve %s", domain.ErrUnresolvedChoice, answer.Value, c.Context)
	}
	return nil
}
