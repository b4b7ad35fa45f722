package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
)

// Message types written by the JSONPresenter.
const (
	MessageDecision = "decision"
	MessageError    = "error"
	MessageEvent    = "event"
)

// Message is one JSON line written by the JSONPresenter.
type Message struct {
	Type     string           `json:"type"`
	Decision *domain.Decision `json:"decision,omitempty"`
	Error    string           `json:"error,omitempty"`
	Event    any              `json:"event,omitempty"`
}

// JSONPresenter asks decisions over JSON-Lines, for hosts driving guidebook
// programmatically.
//
// Each decision is written as a Message. The reply is one line: a JSON string
// or bare text naming options as in ParseAnswer, a JSON array of titles for
// multiselect decisions, or a JSON object of field values for forms.
type JSONPresenter struct {
	Reader *bufio.Reader

	mu      sync.Mutex
	Encoder *json.Encoder
}

var _ ports.Presenter = (*JSONPresenter)(nil)

// NewJSONPresenter creates a presenter for JSON IO.
func NewJSONPresenter(r io.Reader, w io.Writer) *JSONPresenter {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONPresenter{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (p *JSONPresenter) emit(m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Encoder.Encode(m)
}

// Decide writes d and reads replies until a valid one arrives. Invalid
// replies are answered with an error message.
func (p *JSONPresenter) Decide(ctx context.Context, d domain.Decision) (domain.Answer, error) {
	if err := p.emit(Message{Type: MessageDecision, Decision: &d}); err != nil {
		return domain.Answer{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.Answer{}, err
		}
		text, err := p.Reader.ReadString('\n')
		if err != nil && (text == "" || !errors.Is(err, io.EOF)) {
			if errors.Is(err, io.EOF) {
				return domain.Answer{}, domain.ErrInterrupted
			}
			return domain.Answer{}, fmt.Errorf("input error: %w", err)
		}

		answer, perr := p.parse(d, strings.TrimSpace(text))
		if perr == nil {
			return answer, nil
		}
		if err := p.emit(Message{Type: MessageError, Error: perr.Error()}); err != nil {
			return domain.Answer{}, err
		}
		if err != nil {
			return domain.Answer{}, domain.ErrInterrupted
		}
	}
}

func (p *JSONPresenter) parse(d domain.Decision, text string) (domain.Answer, error) {
	text, err := SanitizeInput(text)
	if err != nil {
		return domain.Answer{}, err
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return ParseAnswer(d, text)
	}

	switch v := raw.(type) {
	case string:
		return ParseAnswer(d, v)
	case float64:
		return ParseAnswer(d, text)
	case []any:
		if d.Mode != domain.ChoiceMulti {
			return domain.Answer{}, fmt.Errorf("%w: a list answers multiselect decisions only", ErrInvalidAnswer)
		}
		tokens := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				s = fmt.Sprint(item)
			}
			tokens = append(tokens, s)
		}
		return ParseAnswer(d, strings.Join(tokens, ","))
	case map[string]any:
		if d.Mode != domain.ChoiceForm {
			return domain.Answer{}, fmt.Errorf("%w: an object answers form decisions only", ErrInvalidAnswer)
		}
		values := make(map[string]string, len(v))
		for k, item := range v {
			s, ok := item.(string)
			if !ok {
				s = fmt.Sprint(item)
			}
			values[k] = s
		}
		return FormAnswer(d, values)
	}
	return domain.Answer{}, fmt.Errorf("%w: unsupported reply %s", ErrInvalidAnswer, text)
}

// Hooks reports lifecycle events as event messages.
func (p *JSONPresenter) Hooks() domain.LifecycleHooks {
	report := func(e any) {
		_ = p.emit(Message{Type: MessageEvent, Event: e})
	}
	return domain.LifecycleHooks{
		OnLeafStart:  func(_ context.Context, e *domain.LeafEvent) { report(e) },
		OnLeafFinish: func(_ context.Context, e *domain.LeafEvent) { report(e) },
		OnValidate:   func(_ context.Context, e *domain.ValidateEvent) { report(e) },
		OnExpand:     func(_ context.Context, e *domain.ExpandEvent) { report(e) },
		OnDecision:   func(_ context.Context, e *domain.DecisionEvent) { report(e) },
	}
}

// Report writes an arbitrary event, such as a final summary.
func (p *JSONPresenter) Report(event any) error {
	return p.emit(Message{Type: MessageEvent, Event: event})
}
