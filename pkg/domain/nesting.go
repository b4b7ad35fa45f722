package domain

// Nesting is one ancestor descriptor on a leaf's path, outermost first.
// Implementations: ChoiceMembership, Import, WizardStep.
type Nesting interface {
	nesting()
}

// ChoiceMembership places a leaf inside one part of a Choice.
type ChoiceMembership struct {
	Group             string     `mapstructure:"group" json:"group"`
	Member            int        `mapstructure:"member" json:"member"`
	Title             string     `mapstructure:"title" json:"title,omitempty"`
	Description       string     `mapstructure:"description" json:"description,omitempty"`
	ChoiceTitle       string     `mapstructure:"choiceTitle" json:"choiceTitle,omitempty"`
	ChoiceDescription string     `mapstructure:"choiceDescription" json:"choiceDescription,omitempty"`
	Origin            []string   `mapstructure:"origin" json:"origin,omitempty"`
	Mode              ChoiceMode `mapstructure:"mode" json:"mode,omitempty"`
	Field             *FormField `mapstructure:"field" json:"field,omitempty"`
}

// Import places a leaf inside an imported document.
type Import struct {
	Key              string      `mapstructure:"key" json:"key"`
	Group            string      `mapstructure:"group" json:"group,omitempty"`
	Title            string      `mapstructure:"title" json:"title,omitempty"`
	Description      string      `mapstructure:"description" json:"description,omitempty"`
	Filepath         string      `mapstructure:"filepath" json:"filepath,omitempty"`
	Barrier          bool        `mapstructure:"barrier" json:"barrier,omitempty"`
	Validate         *Validation `mapstructure:"validate" json:"validate,omitempty"`
	IdempotencyGroup string      `mapstructure:"idempotencyGroup" json:"idempotencyGroup,omitempty"`
	FinallyFor       string      `mapstructure:"finallyFor" json:"finallyFor,omitempty"`
}

// WizardStep places a leaf inside one step of a TitledSteps wizard.
type WizardStep struct {
	Group       string `mapstructure:"group" json:"group"`
	Member      int    `mapstructure:"member" json:"member"`
	Title       string `mapstructure:"title" json:"title,omitempty"`
	WizardTitle string `mapstructure:"wizardTitle" json:"wizardTitle,omitempty"`
}

func (ChoiceMembership) nesting() {}
func (Import) nesting()           {}
func (WizardStep) nesting()       {}
