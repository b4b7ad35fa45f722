package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
	"golang.org/x/term"
)

// ContentRenderer transforms markdown before it is printed.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// TextPresenter asks decisions on an interactive text terminal.
type TextPresenter struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	// fd is set when reading from a terminal, enabling hidden input.
	fd int

	lines     chan lineResult
	want      chan struct{}
	startOnce sync.Once
}

var _ ports.Presenter = (*TextPresenter)(nil)

type lineResult struct {
	text string
	err  error
}

// TextPresenterOption defines configuration for TextPresenter.
type TextPresenterOption func(*TextPresenter)

// WithRenderer configures the markdown renderer of titles and descriptions.
func WithRenderer(renderer ContentRenderer) TextPresenterOption {
	return func(p *TextPresenter) {
		p.Renderer = renderer
	}
}

// NewTextPresenter creates a presenter for standard text IO.
func NewTextPresenter(r io.Reader, w io.Writer, opts ...TextPresenterOption) *TextPresenter {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	p := &TextPresenter{
		Reader: bufio.NewReader(r),
		Writer: w,
		fd:     -1,
	}
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *TextPresenter) initPump() {
	p.startOnce.Do(func() {
		p.lines = make(chan lineResult, 1)
		p.want = make(chan struct{})
		go p.pump()
	})
}

// pump reads one line per request so that hidden input can take over the
// terminal between requests.
func (p *TextPresenter) pump() {
	for range p.want {
		text, err := p.Reader.ReadString('\n')
		if text != "" && err == io.EOF {
			err = nil
		}
		p.lines <- lineResult{text: text, err: err}
	}
}

// readLine reads one sanitized line, honouring ctx.
func (p *TextPresenter) readLine(ctx context.Context) (string, error) {
	p.initPump()
	select {
	case p.want <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-p.lines:
		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				return "", domain.ErrInterrupted
			}
			return "", fmt.Errorf("input error: %w", res.err)
		}
		return SanitizeInput(strings.TrimSpace(res.text))
	}
}

// readSecret reads a line without echo when attached to a terminal.
func (p *TextPresenter) readSecret(ctx context.Context) (string, error) {
	if p.fd < 0 {
		return p.readLine(ctx)
	}
	done := make(chan lineResult, 1)
	go func() {
		b, err := term.ReadPassword(p.fd)
		done <- lineResult{text: string(b), err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		fmt.Fprintln(p.Writer)
		if res.err != nil {
			return "", fmt.Errorf("input error: %w", res.err)
		}
		return SanitizeInput(strings.TrimSpace(res.text))
	}
}

// Decide prints d and reads answers until a valid one is given.
// Typing "exit" or "quit", or closing the input, aborts the run.
func (p *TextPresenter) Decide(ctx context.Context, d domain.Decision) (domain.Answer, error) {
	p.render(d)

	if d.Mode == domain.ChoiceForm {
		return p.form(ctx, d)
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.Answer{}, err
		}
		fmt.Fprint(p.Writer, "> ")
		text, err := p.readLine(ctx)
		if err != nil {
			if errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8) {
				fmt.Fprintf(p.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return domain.Answer{}, err
		}
		if text == "exit" || text == "quit" {
			return domain.Answer{}, domain.ErrInterrupted
		}

		answer, err := ParseAnswer(d, text)
		if err != nil {
			fmt.Fprintf(p.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		return answer, nil
	}
}

func (p *TextPresenter) form(ctx context.Context, d domain.Decision) (domain.Answer, error) {
	values := make(map[string]string, len(d.Options))
	for _, o := range d.Options {
		label := o.Title
		if o.Field != nil && o.Field.Label != "" {
			label = o.Field.Label
		}
		def := fieldDefault(d, o)
		secret := o.Field != nil && o.Field.Secret

		switch {
		case def != "" && !secret:
			fmt.Fprintf(p.Writer, "%s [%s]: ", label, def)
		case def != "":
			fmt.Fprintf(p.Writer, "%s [keep]: ", label)
		default:
			fmt.Fprintf(p.Writer, "%s: ", label)
		}

		read := p.readLine
		if secret {
			read = p.readSecret
		}
		text, err := read(ctx)
		if err != nil {
			return domain.Answer{}, err
		}
		if text == "" {
			text = def
		}
		values[o.Title] = text
	}
	return FormAnswer(d, values)
}

func (p *TextPresenter) render(d domain.Decision) {
	var b strings.Builder
	title := d.Title
	if title == "" {
		title = d.Context
	}
	fmt.Fprintf(&b, "## %s\n", title)
	if d.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", d.Description)
	}
	fmt.Fprintln(p.Writer, p.markdown(b.String()))

	if d.Mode == domain.ChoiceForm {
		return
	}

	current := map[string]bool{}
	if ValidSuggestion(d) {
		if d.Mode == domain.ChoiceMulti {
			titles, _ := domain.DecodeMulti(d.Suggested)
			for _, t := range titles {
				current[t] = true
			}
		} else {
			current[d.Suggested] = true
		}
	}

	for i, o := range d.Options {
		mark := ""
		if current[o.Title] {
			mark = " (current)"
		}
		fmt.Fprintf(p.Writer, "  %d) %s%s\n", i+1, o.Title, mark)
		if o.Description != "" {
			fmt.Fprintf(p.Writer, "     %s\n", firstLine(o.Description))
		}
	}
	if d.Mode == domain.ChoiceMulti {
		fmt.Fprintln(p.Writer, "Select one or more, separated by commas.")
	}
}

func (p *TextPresenter) markdown(s string) string {
	if p.Renderer == nil {
		return strings.TrimSpace(s)
	}
	out, err := p.Renderer(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
