package selenium

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePodman struct {
	mu       sync.Mutex
	commands [][]string
	failOn   func(argv []string) error
	counter  int
}

func (fake *fakePodman) Run(_ context.Context, argv ...string) (string, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.commands = append(fake.commands, argv)

	if fake.failOn != nil {
		if err := fake.failOn(argv); err != nil {
			return "", err
		}
	}

	if len(argv) > 2 && (argv[1] == "run" || (argv[1] == "pod" && argv[2] == "create")) {
		fake.counter++

		return fmt.Sprintf("container-%d\n", fake.counter), nil
	}

	return "", nil
}

func (fake *fakePodman) lines() []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	var lines []string

	for _, argv := range fake.commands {
		lines = append(lines, strings.Join(argv, " "))
	}

	return lines
}

func hubServer(t *testing.T, status string) (*httptest.Server, int) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/wd/hub/status" {
			http.NotFound(writer, request)

			return
		}

		_, _ = writer.Write([]byte(status))
	}))

	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)

	return server, port
}

func testConfig(port int) Config {
	return Config{
		EngineFQDN:     "engine.ost.local",
		EngineIP:       "192.168.200.2",
		HubImage:       "hub-image",
		NodeImages:     []string{"chrome-image", "firefox-image"},
		HubPort:        port,
		HealthInterval: 5 * time.Millisecond,
		HealthTimeout:  100 * time.Millisecond,
	}
}

func TestGridLifecycle(t *testing.T) {
	_, port := hubServer(t, `{"value":{"ready":true,"nodes":[{},{}]}}`)
	executor := &fakePodman{}

	var gridURL string

	err := Grid(context.TODO(), executor, testConfig(port), func(_ context.Context, url string) error {
		gridURL = url

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port), gridURL)

	lines := executor.lines()
	require.Len(t, lines, 8)

	assert.Equal(t, fmt.Sprintf("podman pod create -p %d:%d", port, port), lines[0])
	assert.Equal(t, "podman run -d --pod container-1 hub-image", lines[1])
	assert.Contains(t, lines[2], "--add-host=engine.ost.local:192.168.200.2")
	assert.Contains(t, lines[2], "HUB_HOST=127.0.0.1")
	assert.Contains(t, lines[2], fmt.Sprintf("HUB_PORT=%d", port))
	assert.True(t, strings.HasSuffix(lines[2], "--pod container-1 chrome-image"))
	assert.True(t, strings.HasSuffix(lines[3], "--pod container-1 firefox-image"))
	assert.Equal(t, []string{
		"podman rm -f container-3",
		"podman rm -f container-4",
		"podman rm -f container-2",
		"podman pod rm -f container-1",
	}, lines[4:])
}

func TestGridNodesGetUniquePortsAndDisplays(t *testing.T) {
	_, port := hubServer(t, `{"value":{"ready":true}}`)
	executor := &fakePodman{}

	require.NoError(t, Grid(context.TODO(), executor, testConfig(port), func(context.Context, string) error {
		return nil
	}))

	seen := map[string]bool{}

	for _, argv := range executor.commands {
		for _, arg := range argv {
			if strings.HasPrefix(arg, "SE_OPTS=") || strings.HasPrefix(arg, "DISPLAY=") {
				assert.False(t, seen[arg], "%s reused", arg)
				seen[arg] = true
			}
		}
	}

	assert.Len(t, seen, 4)
}

func TestGridCallbackErrorStillTearsDown(t *testing.T) {
	_, port := hubServer(t, `{"value":{"ready":true}}`)
	executor := &fakePodman{}
	failure := errors.New("page did not load")

	err := Grid(context.TODO(), executor, testConfig(port), func(context.Context, string) error {
		return failure
	})

	assert.ErrorIs(t, err, failure)

	lines := executor.lines()
	assert.Equal(t, "podman pod rm -f container-1", lines[len(lines)-1])
}

func TestGridUnhealthy(t *testing.T) {
	_, port := hubServer(t, `{"value":{"ready":true,"nodes":[{}]}}`)
	executor := &fakePodman{}
	called := false

	err := Grid(context.TODO(), executor, testConfig(port), func(context.Context, string) error {
		called = true

		return nil
	})

	require.Error(t, err)
	assert.False(t, called)

	lines := executor.lines()
	assert.Contains(t, lines, "podman logs container-2")
	assert.Contains(t, lines, "podman logs container-3")
	assert.Contains(t, lines, "podman logs container-4")
	assert.Equal(t, "podman pod rm -f container-1", lines[len(lines)-1])
}

func TestStartAndStop(t *testing.T) {
	_, port := hubServer(t, `{"value":{"ready":true,"nodes":[{},{}]}}`)
	executor := &fakePodman{}

	running, err := Start(context.TODO(), executor, testConfig(port))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port), running.URL)
	assert.NotContains(t, executor.lines(), "podman pod rm -f container-1")

	require.NoError(t, running.Stop())
	require.NoError(t, running.Stop())

	lines := executor.lines()
	assert.Equal(t, "podman pod rm -f container-1", lines[len(lines)-1])
}

func TestStartFailureLeavesNothingToStop(t *testing.T) {
	_, port := hubServer(t, `{"value":{"ready":true,"nodes":[{}]}}`)
	executor := &fakePodman{}
	result := make(chan error, 1)

	go func() {
		running, err := Start(context.TODO(), executor, testConfig(port))
		if err == nil {
			err = errors.New("grid started")
		}

		assert.Nil(t, running)
		assert.NoError(t, running.Stop())

		result <- err
	}()

	select {
	case err := <-result:
		assert.ErrorContains(t, err, "is not healthy")
	case <-time.After(5 * time.Second):
		t.Fatal("grid start and stop did not return")
	}

	lines := executor.lines()
	assert.Equal(t, "podman pod rm -f container-1", lines[len(lines)-1])
}

func TestGridNodeStartFailure(t *testing.T) {
	_, port := hubServer(t, `{"value":{"ready":true}}`)
	executor := &fakePodman{failOn: func(argv []string) error {
		if argv[len(argv)-1] == "firefox-image" {
			return errors.New("image pull failed")
		}

		return nil
	}}

	err := Grid(context.TODO(), executor, testConfig(port), func(context.Context, string) error {
		return nil
	})

	require.Error(t, err)

	lines := executor.lines()
	assert.Equal(t, []string{
		"podman rm -f container-3",
		"podman rm -f container-2",
		"podman pod rm -f container-1",
	}, lines[len(lines)-3:])
}

func TestGridTeardownErrorsAreReported(t *testing.T) {
	_, port := hubServer(t, `{"value":{"ready":true}}`)
	executor := &fakePodman{failOn: func(argv []string) error {
		if argv[1] == "pod" && argv[2] == "rm" {
			return errors.New("pod busy")
		}

		return nil
	}}

	err := Grid(context.TODO(), executor, testConfig(port), func(context.Context, string) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pod busy")
}

func TestGridValidation(t *testing.T) {
	noop := func(context.Context, string) error { return nil }

	assert.Error(t, Grid(context.TODO(), &fakePodman{}, Config{EngineIP: "1.2.3.4"}, noop))
	assert.Error(t, Grid(context.TODO(), &fakePodman{}, Config{EngineFQDN: "engine", EngineIP: "1.2.3.4"}, nil))
}

func TestIsReady(t *testing.T) {
	testCases := []struct {
		name     string
		status   string
		nodes    int
		expected bool
	}{
		{name: "ready without node list", status: `{"value":{"ready":true}}`, nodes: 2, expected: true},
		{name: "not ready", status: `{"value":{"ready":false}}`, nodes: 0, expected: false},
		{name: "too few nodes", status: `{"value":{"ready":true,"nodes":[{}]}}`, nodes: 2, expected: false},
		{name: "enough nodes", status: `{"value":{"ready":true,"nodes":[{},{}]}}`, nodes: 2, expected: true},
		{name: "invalid", status: `not json`, nodes: 0, expected: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, IsReady(testCase.status, testCase.nodes))
		})
	}
}

func TestAllocatorExhaustion(t *testing.T) {
	alloc := newAllocator("slot", 1, 3)

	first, err := alloc.next()
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := alloc.next()
	require.NoError(t, err)
	assert.Equal(t, 2, second)

	_, err = alloc.next()
	assert.Error(t, err)
}
