package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/aretw0/guidebook/internal/logging"
	"github.com/aretw0/guidebook/pkg/domain"
)

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout flow UI).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// ParseAssertions turns key=value pairs into answers. The value may contain
// '=' but the key may not be empty.
func ParseAssertions(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assertion %q: want key=value", p)
		}
		out[key] = value
	}
	return out, nil
}

// CompileVetoes compiles the --no-validate patterns.
func CompileVetoes(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid --no-validate pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func isInterrupted(err error) bool {
	return errors.Is(err, domain.ErrInterrupted) || errors.Is(err, context.Canceled)
}

// handleExecutionError hides interruptions: the CLI exits quietly on them.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

// stdout is where the CLI writes for humans. Tests replace it.
var stdout io.Writer = os.Stdout
