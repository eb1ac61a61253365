package remote

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Executor runs a command given as argv and returns its standard output.
type Executor interface {
	Run(ctx context.Context, argv ...string) (string, error)
}

// CommandError is returned when a command ran but exited with a non-zero status.
type CommandError struct {
	Target   string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q on %s failed with exit code %d: %s",
		e.Command, e.Target, e.ExitCode, strings.TrimSpace(e.Stderr))
}

var (
	// Shell operators that must reach the remote shell unquoted.
	operators = map[string]struct{}{
		"&&": {},
		"||": {},
		";":  {},
		"|":  {},
		"&":  {},
		">":  {},
		">>": {},
		"<":  {},
	}

	// Words made only of these characters are passed as is so globs keep expanding.
	plainWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./*~-]+$`)
)

// FormatCommand joins argv into a single command line for a remote shell. Operators and plain words are kept as
// they are and everything else is single quoted.
func FormatCommand(argv ...string) string {
	words := make([]string, 0, len(argv))

	for _, arg := range argv {
		words = append(words, quote(arg))
	}

	return strings.Join(words, " ")
}

func quote(arg string) string {
	if _, ok := operators[arg]; ok {
		return arg
	}

	if plainWord.MatchString(arg) {
		return arg
	}

	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
