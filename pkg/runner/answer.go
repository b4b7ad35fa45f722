package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/guidebook/pkg/domain"
)

// ErrInvalidAnswer is returned when typed input does not name an option.
var ErrInvalidAnswer = errors.New("invalid answer")

// ParseAnswer turns typed input into an answer for d. Options are named by
// their 1-based number or their title; multiselect input separates them with
// commas. Empty input keeps the suggested answer.
func ParseAnswer(d domain.Decision, input string) (domain.Answer, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		if d.Suggested != "" && ValidSuggestion(d) {
			return domain.Answer{Value: d.Suggested}, nil
		}
		return domain.Answer{}, fmt.Errorf("%w: an answer is required", ErrInvalidAnswer)
	}

	switch d.Mode {
	case domain.ChoiceMulti:
		var titles []string
		seen := make(map[string]bool)
		for _, tok := range strings.Split(input, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			title, err := resolveOption(d, tok)
			if err != nil {
				return domain.Answer{}, err
			}
			if !seen[title] {
				seen[title] = true
				titles = append(titles, title)
			}
		}
		if len(titles) == 0 {
			return domain.Answer{}, fmt.Errorf("%w: select at least one option", ErrInvalidAnswer)
		}
		return domain.MultiAnswer(titles), nil
	case domain.ChoiceForm:
		values, err := domain.DecodeForm(input)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("%w: form answers are a JSON object", ErrInvalidAnswer)
		}
		return FormAnswer(d, values)
	}

	title, err := resolveOption(d, input)
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.SingleAnswer(title), nil
}

// FormAnswer completes values with the defaults of d and rejects unknown fields.
func FormAnswer(d domain.Decision, values map[string]string) (domain.Answer, error) {
	out := make(map[string]string, len(d.Options))
	for k, v := range values {
		if option(d, k) == nil {
			return domain.Answer{}, fmt.Errorf("%w: unknown field %q", ErrInvalidAnswer, k)
		}
		out[k] = v
	}
	for _, o := range d.Options {
		if _, ok := out[o.Title]; !ok {
			out[o.Title] = fieldDefault(d, o)
		}
	}
	return domain.FormAnswer(out), nil
}

// ValidSuggestion reports whether the suggested answer of d still names
// existing options.
func ValidSuggestion(d domain.Decision) bool {
	if d.Suggested == "" {
		return false
	}
	switch d.Mode {
	case domain.ChoiceMulti:
		titles, err := domain.DecodeMulti(d.Suggested)
		if err != nil || len(titles) == 0 {
			return false
		}
		for _, t := range titles {
			if option(d, t) == nil {
				return false
			}
		}
		return true
	case domain.ChoiceForm:
		_, err := domain.DecodeForm(d.Suggested)
		return err == nil
	}
	return option(d, d.Suggested) != nil
}

func resolveOption(d domain.Decision, tok string) (string, error) {
	if n, err := strconv.Atoi(tok); err == nil {
		if n < 1 || n > len(d.Options) {
			return "", fmt.Errorf("%w: choose a number between 1 and %d", ErrInvalidAnswer, len(d.Options))
		}
		return d.Options[n-1].Title, nil
	}
	if o := option(d, tok); o != nil {
		return o.Title, nil
	}
	for _, o := range d.Options {
		if strings.EqualFold(o.Title, tok) {
			return o.Title, nil
		}
	}
	return "", fmt.Errorf("%w: no option %q", ErrInvalidAnswer, tok)
}

func option(d domain.Decision, title string) *domain.Option {
	for i := range d.Options {
		if d.Options[i].Title == title {
			return &d.Options[i]
		}
	}
	return nil
}

// fieldDefault is the stored value of a form field, else its declared default.
func fieldDefault(d domain.Decision, o domain.Option) string {
	if d.Suggested != "" {
		if prev, err := domain.DecodeForm(d.Suggested); err == nil {
			if v, ok := prev[o.Title]; ok {
				return v
			}
		}
	}
	if o.Field != nil {
		return o.Field.Default
	}
	return ""
}
