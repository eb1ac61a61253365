package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRun(t *testing.T) {
	local := &Local{Env: []string{"GREETING=hello"}}

	output, err := local.Run(context.TODO(), "sh", "-c", "echo $GREETING")

	require.NoError(t, err)
	assert.Equal(t, "hello\n", output)
}

func TestLocalRunExitCode(t *testing.T) {
	output, err := (&Local{}).Run(context.TODO(), "sh", "-c", "echo out; echo err >&2; exit 3")

	var commandErr *CommandError

	require.ErrorAs(t, err, &commandErr)
	assert.Equal(t, 3, commandErr.ExitCode)
	assert.Equal(t, "out\n", output)
	assert.Equal(t, "err\n", commandErr.Stderr)
	assert.Equal(t, "localhost", commandErr.Target)
}

func TestLocalRunEmpty(t *testing.T) {
	_, err := (&Local{}).Run(context.TODO())

	assert.Error(t, err)
}

func TestLocalRunMissingBinary(t *testing.T) {
	_, err := (&Local{}).Run(context.TODO(), "/nonexistent/binary")

	var commandErr *CommandError

	require.Error(t, err)
	assert.False(t, errors.As(err, &commandErr))
}

func TestWithoutProxy(t *testing.T) {
	env := []string{"PATH=/bin", "http_proxy=http://proxy:3128", "HTTPS_PROXY=http://proxy:3128", "NO_PROXY=local"}

	assert.Equal(t, []string{"PATH=/bin", "NO_PROXY=local"}, WithoutProxy(env))
}

func TestNewLocalDisablesProxy(t *testing.T) {
	t.Setenv("http_proxy", "http://proxy:3128")

	assert.NotContains(t, NewLocal(true).Env, "http_proxy=http://proxy:3128")
	assert.Contains(t, NewLocal(false).Env, "http_proxy=http://proxy:3128")
}

func TestNewHostValidation(t *testing.T) {
	_, err := NewHost("", 22, "root", "secret", "")
	assert.Error(t, err)

	_, err = NewHost("host-0", 22, "", "secret", "")
	assert.Error(t, err)

	_, err = NewHost("host-0", 22, "root", "", "")
	assert.Error(t, err)

	_, err = NewHost("host-0", 22, "root", "", "/nonexistent/id_rsa")
	assert.Error(t, err)

	host, err := NewHost("host-0", 0, "root", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "host-0:22", host.Address())
}
