package domain

// Status is the execution state of a node.
type Status string

const (
	StatusBlank      Status = "blank" // Unknown or not attempted
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusSuccess    Status = "success"
	StatusWarning    Status = "warning"
	StatusError      Status = "error"
)

// severity orders the non-success states. Higher is worse.
func (s Status) severity() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusWarning:
		return 2
	case StatusPending:
		return 3
	case StatusInProgress:
		return 4
	case StatusError:
		return 5
	default:
		return 1 // blank and anything unknown
	}
}

// Intersect combines the status of two siblings that must both succeed.
// The result is success only if both are success, error if either is error,
// and otherwise the worse of in-progress, pending, warning and blank.
func Intersect(a, b Status) Status {
	if a.severity() >= b.severity() {
		return normalize(a)
	}
	return normalize(b)
}

// Union combines the status of two alternatives where one success suffices.
func Union(a, b Status) Status {
	if a == StatusSuccess || b == StatusSuccess {
		return StatusSuccess
	}
	return Intersect(a, b)
}

// IntersectAll folds Intersect over statuses. An empty input is success.
func IntersectAll(statuses ...Status) Status {
	acc := StatusSuccess
	for _, s := range statuses {
		acc = Intersect(acc, s)
	}
	return acc
}

// UnionAll folds Union over statuses. An empty input is blank.
func UnionAll(statuses ...Status) Status {
	if len(statuses) == 0 {
		return StatusBlank
	}
	acc := statuses[0]
	for _, s := range statuses[1:] {
		acc = Union(acc, s)
	}
	return normalize(acc)
}

// IsTerminal reports whether no further work can change the status.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusWarning
}

func normalize(s Status) Status {
	switch s {
	case StatusBlank, StatusPending, StatusInProgress, StatusSuccess, StatusWarning, StatusError:
		return s
	default:
		return StatusBlank
	}
}
