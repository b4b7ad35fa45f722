package domain

// Option is one selectable answer of a Decision.
type Option struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Field       *FormField `json:"field,omitempty"`
}

// Decision is what a Presenter shows to the user.
type Decision struct {
	Context     string     `json:"context"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Mode        ChoiceMode `json:"mode"`
	Options     []Option   `json:"options"`

	// Suggested is the previously stored answer, if any.
	Suggested string `json:"suggested,omitempty"`
}

// Answer is the encoded reply to a Decision, as stored in ChoiceState.
type Answer struct {
	Value string `json:"value"`
}

// NewDecision describes c for presentation.
func NewDecision(c *Choice, suggested string) Decision {
	d := Decision{
		Context:     c.Context,
		Title:       c.Title,
		Description: c.Description,
		Mode:        c.Mode,
		Suggested:   suggested,
	}
	if d.Mode == "" {
		d.Mode = ChoiceSingle
	}
	for _, p := range c.Parts {
		d.Options = append(d.Options, Option{Title: p.Title, Description: p.Description, Field: p.Field})
	}
	return d
}

func SingleAnswer(title string) Answer           { return Answer{Value: title} }
func MultiAnswer(titles []string) Answer         { return Answer{Value: EncodeMulti(titles)} }
func FormAnswer(values map[string]string) Answer { return Answer{Value: EncodeForm(values)} }
