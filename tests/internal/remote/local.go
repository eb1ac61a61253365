package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/golang/glog"
)

var proxyVariables = []string{"http_proxy", "https_proxy", "HTTP_PROXY", "HTTPS_PROXY"}

// Local runs commands on the machine executing the tests.
type Local struct {
	// Env is the environment of every command. Nil means the current process environment.
	Env []string
}

// NewLocal returns a Local executor. With disableProxy set the HTTP proxy variables are removed from the
// environment handed to commands.
func NewLocal(disableProxy bool) *Local {
	env := os.Environ()

	if disableProxy {
		env = WithoutProxy(env)
	}

	return &Local{Env: env}
}

// Run executes argv and returns its standard output. A non-zero exit status is returned as *CommandError.
func (local *Local) Run(ctx context.Context, argv ...string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("command cannot be empty")
	}

	glog.V(100).Infof("Execute local cmd %v", argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = local.Env

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &CommandError{
				Target:   "localhost",
				Command:  strings.Join(argv, " "),
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}

		return stdout.String(), fmt.Errorf("failed to run %v: %w", argv, err)
	}

	return stdout.String(), nil
}

// WithoutProxy returns a copy of env without the HTTP proxy variables.
func WithoutProxy(env []string) []string {
	filtered := make([]string, 0, len(env))

	for _, entry := range env {
		name, _, _ := strings.Cut(entry, "=")

		if slices.Contains(proxyVariables, name) {
			continue
		}

		filtered = append(filtered, entry)
	}

	return filtered
}
