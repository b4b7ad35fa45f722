package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
)

// ScriptedPresenter answers decisions from a fixed script keyed by context.
// Script values are typed input as understood by ParseAnswer. It is meant for
// non-interactive runs and tests.
type ScriptedPresenter struct {
	script map[string]string

	mu    sync.Mutex
	asked []string
}

var _ ports.Presenter = (*ScriptedPresenter)(nil)

// NewScriptedPresenter creates a presenter answering from script.
func NewScriptedPresenter(script map[string]string) *ScriptedPresenter {
	return &ScriptedPresenter{script: script}
}

// Decide answers d from the script. A decision missing from the script is
// unresolved.
func (p *ScriptedPresenter) Decide(ctx context.Context, d domain.Decision) (domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}
	p.mu.Lock()
	p.asked = append(p.asked, d.Context)
	p.mu.Unlock()

	input, ok := p.script[d.Context]
	if !ok {
		return domain.Answer{}, fmt.Errorf("%w: no scripted answer for %s", domain.ErrUnresolvedChoice, d.Context)
	}
	return ParseAnswer(d, input)
}

// Asked returns the contexts of the decisions presented so far, in order.
func (p *ScriptedPresenter) Asked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.asked...)
}
