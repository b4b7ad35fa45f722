package domain

// Memo key prefixes shared by the optimizer, the runtime and the status model.
const (
	// KeyValidatePrefix prefixes validation commands in the status memo.
	KeyValidatePrefix = "validate:"

	// KeyIdempotencyPrefix prefixes idempotency groups in the status memo.
	KeyIdempotencyPrefix = "idem:"

	// KeyChoicePrefix prefixes SubTask keys synthesized for collapsed choices.
	KeyChoicePrefix = "choice:"

	// KeyPrerequisitesPrefix prefixes SubTask keys synthesized by hoisting.
	KeyPrerequisitesPrefix = "prerequisites:"

	// KeyMainPrefix prefixes SubTask keys synthesized by title propagation.
	KeyMainPrefix = "main:"
)

// Titles of wrappers synthesized by the optimizer.
const (
	TitlePrerequisites = "Prerequisites"
	TitleMainTasks     = "Main Tasks"
)
