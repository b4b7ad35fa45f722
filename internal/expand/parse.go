package expand

import (
	"strconv"
	"strings"
)

// Expression is a parsed expand(<command>[, message[, envKey]]) group.
type Expression struct {
	Raw     string
	Command string
	Message string
	EnvKey  string
}

// Parse recognizes a dynamic option group.
// Commas inside single or double quotes do not separate arguments.
func Parse(group string) (Expression, bool) {
	s := strings.TrimSpace(group)
	if !strings.HasPrefix(s, "expand(") || !strings.HasSuffix(s, ")") {
		return Expression{}, false
	}
	args := splitArgs(s[len("expand(") : len(s)-1])
	if len(args) == 0 || len(args) > 3 {
		return Expression{}, false
	}

	expr := Expression{Raw: group, Command: unquote(args[0])}
	if expr.Command == "" {
		return Expression{}, false
	}
	if len(args) > 1 {
		expr.Message = unquote(args[1])
	}
	if len(args) > 2 {
		expr.EnvKey = unquote(args[2])
	}
	return expr, true
}

func splitArgs(s string) []string {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		esc   bool
	)
	for _, r := range s {
		switch {
		case esc:
			esc = false
		case r == '\\' && quote == '"':
			esc = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ',':
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if last := strings.TrimSpace(cur.String()); last != "" || len(args) > 0 {
		args = append(args, last)
	}
	return args
}

// unquote strips one level of matching quotes around a whole argument.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '"' && s[len(s)-1] == '"':
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	case s[0] == '\'' && s[len(s)-1] == '\'':
		return s[1 : len(s)-1]
	}
	return s
}
