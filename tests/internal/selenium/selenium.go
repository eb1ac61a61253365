package selenium

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/ovirt/ost-gotests/tests/internal/await"
	"github.com/ovirt/ost-gotests/tests/internal/remote"
	"github.com/tidwall/gjson"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const (
	// HubIP is the address the hub is reached on, from the runner and from the nodes sharing its pod.
	HubIP = "127.0.0.1"
	// DefaultHubPort is the port the hub listens on.
	DefaultHubPort = 4444
	// DefaultHubImage is the hub container image.
	DefaultHubImage = "docker.io/selenium/hub:3.141.59"
	// ChromeNodeImage is the chrome node container image.
	ChromeNodeImage = "docker.io/selenium/node-chrome-debug:3.141.59"
	// FirefoxNodeImage is the firefox node container image.
	FirefoxNodeImage = "docker.io/selenium/node-firefox-debug:3.141.59"
	// DefaultHealthTimeout bounds the wait for the grid to report every node.
	DefaultHealthTimeout = 3 * time.Minute
)

// Nodes of one pod compete for ports and X displays, so every node gets values unique to the process.
var (
	nodePorts    = newAllocator("node port", 5600, 5700)
	nodeDisplays = newAllocator("display", 100, 200)
)

// Config describes a grid.
type Config struct {
	EngineFQDN     string
	EngineIP       string
	HubImage       string
	NodeImages     []string
	HubPort        int
	HealthTimeout  time.Duration
	HealthInterval time.Duration
	// HTTPClient performs the health check. The default client ignores proxy settings.
	HTTPClient *http.Client
}

func (config *Config) setDefaults() {
	if config.HubImage == "" {
		config.HubImage = DefaultHubImage
	}

	if len(config.NodeImages) == 0 {
		config.NodeImages = []string{ChromeNodeImage, FirefoxNodeImage}
	}

	if config.HubPort == 0 {
		config.HubPort = DefaultHubPort
	}

	if config.HealthTimeout <= 0 {
		config.HealthTimeout = DefaultHealthTimeout
	}

	if config.HealthInterval <= 0 {
		config.HealthInterval = await.DefaultInterval
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Transport: &http.Transport{Proxy: nil},
			Timeout:   10 * time.Second,
		}
	}
}

// URL returns the WebDriver URL of a hub listening on port.
func URL(port int) string {
	return fmt.Sprintf("http://%s:%d/wd/hub", HubIP, port)
}

// Grid starts a pod holding a hub and one node per image, waits until the hub reports every node and calls fn with
// the grid URL. The nodes, the hub and the pod are removed, in that order, whatever the outcome. A nil executor
// runs podman locally without proxy settings.
func Grid(ctx context.Context, executor remote.Executor, config Config,
	fn func(ctx context.Context, url string) error) (err error) {
	if config.EngineFQDN == "" || config.EngineIP == "" {
		return fmt.Errorf("engine fqdn and ip are required to start a grid")
	}

	if fn == nil {
		return fmt.Errorf("grid callback cannot be nil")
	}

	config.setDefaults()

	if executor == nil {
		executor = remote.NewLocal(true)
	}

	var teardownErrs []error

	defer func() {
		if len(teardownErrs) > 0 {
			err = utilerrors.NewAggregate(append([]error{err}, teardownErrs...))
		}
	}()

	podName, err := podman(ctx, executor, "pod", "create", "-p", fmt.Sprintf("%d:%d", config.HubPort, config.HubPort))
	if err != nil {
		return fmt.Errorf("failed to create grid pod: %w", err)
	}

	defer func() {
		if _, rmErr := podman(context.WithoutCancel(ctx), executor, "pod", "rm", "-f", podName); rmErr != nil {
			teardownErrs = append(teardownErrs, fmt.Errorf("failed to remove pod %s: %w", podName, rmErr))
		}
	}()

	hubName, err := podman(ctx, executor, "run", "-d", "--pod", podName, config.HubImage)
	if err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	defer func() {
		if _, rmErr := podman(context.WithoutCancel(ctx), executor, "rm", "-f", hubName); rmErr != nil {
			teardownErrs = append(teardownErrs, fmt.Errorf("failed to remove hub %s: %w", hubName, rmErr))
		}
	}()

	var nodeNames []string

	defer func() {
		for _, name := range nodeNames {
			if _, rmErr := podman(context.WithoutCancel(ctx), executor, "rm", "-f", name); rmErr != nil {
				teardownErrs = append(teardownErrs, fmt.Errorf("failed to remove node %s: %w", name, rmErr))
			}
		}
	}()

	for _, image := range config.NodeImages {
		name, err := startNode(ctx, executor, config, podName, image)
		if err != nil {
			return err
		}

		nodeNames = append(nodeNames, name)
	}

	url := URL(config.HubPort)

	err = HealthCheck(ctx, config.HTTPClient, url, len(config.NodeImages), config.HealthInterval,
		config.HealthTimeout)
	if err != nil {
		logIssues(ctx, executor, hubName, nodeNames)

		return fmt.Errorf("grid at %s is not healthy: %w", url, err)
	}

	glog.V(90).Infof("Selenium grid is up at %s", url)

	return fn(ctx, url)
}

// Running is a grid started by Start. It keeps running until Stop is called.
type Running struct {
	URL string

	stop     context.CancelFunc
	done     chan error
	stopOnce sync.Once
	stopErr  error
}

// Start runs Grid in the background and returns once the hub reports every node. When the grid fails to come up the
// error is returned and nothing is left running.
func Start(ctx context.Context, executor remote.Executor, config Config) (*Running, error) {
	gridCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	ready := make(chan string, 1)

	go func() {
		done <- Grid(gridCtx, executor, config, func(ctx context.Context, hubURL string) error {
			ready <- hubURL
			<-ctx.Done()

			return nil
		})
	}()

	select {
	case hubURL := <-ready:
		return &Running{URL: hubURL, stop: cancel, done: done}, nil
	case err := <-done:
		cancel()

		return nil, err
	}
}

// Stop tears the grid down and returns the teardown error. Later calls return the same error and a nil grid stops
// nothing.
func (running *Running) Stop() error {
	if running == nil {
		return nil
	}

	running.stopOnce.Do(func() {
		running.stop()
		running.stopErr = <-running.done
	})

	return running.stopErr
}

func startNode(ctx context.Context, executor remote.Executor, config Config, podName, image string) (string, error) {
	port, err := nodePorts.next()
	if err != nil {
		return "", err
	}

	display, err := nodeDisplays.next()
	if err != nil {
		return "", err
	}

	name, err := podman(ctx, executor,
		"run", "-d",
		fmt.Sprintf("--add-host=%s:%s", config.EngineFQDN, config.EngineIP),
		"-e", "HUB_HOST="+HubIP,
		"-e", fmt.Sprintf("HUB_PORT=%d", config.HubPort),
		"-e", fmt.Sprintf("SE_OPTS=-port %d", port),
		"-e", fmt.Sprintf("DISPLAY=:%d", display),
		"--pod", podName,
		image,
	)
	if err != nil {
		return "", fmt.Errorf("failed to start node %s: %w", image, err)
	}

	return name, nil
}

// HealthCheck polls <url>/status until the hub is ready and, when it lists its nodes, knows at least nodes of them.
func HealthCheck(ctx context.Context, client *http.Client, url string, nodes int,
	interval, timeout time.Duration) error {
	statusURL := strings.TrimSuffix(url, "/") + "/status"

	return await.TrueWithin(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return false, err
		}

		response, err := client.Do(request)
		if err != nil {
			return false, err
		}

		defer response.Body.Close()

		body, err := io.ReadAll(response.Body)
		if err != nil {
			return false, err
		}

		if response.StatusCode != http.StatusOK {
			return false, fmt.Errorf("hub status returned %s", response.Status)
		}

		return IsReady(string(body), nodes), nil
	})
}

// IsReady tells whether a hub status document reports a ready grid with at least nodes nodes.
func IsReady(status string, nodes int) bool {
	if !gjson.Valid(status) || !gjson.Get(status, "value.ready").Bool() {
		return false
	}

	registered := gjson.Get(status, "value.nodes")
	if registered.Exists() && len(registered.Array()) < nodes {
		glog.V(100).Infof("Hub knows %d of %d nodes", len(registered.Array()), nodes)

		return false
	}

	return true
}

func logIssues(ctx context.Context, executor remote.Executor, hubName string, nodeNames []string) {
	logs, _ := podman(context.WithoutCancel(ctx), executor, "logs", hubName)
	glog.Errorf("Hub logs:\n%s", logs)

	for _, name := range nodeNames {
		logs, _ := podman(context.WithoutCancel(ctx), executor, "logs", name)
		glog.Errorf("Node %s logs:\n%s", name, logs)
	}
}

func podman(ctx context.Context, executor remote.Executor, args ...string) (string, error) {
	output, err := executor.Run(ctx, append([]string{"podman"}, args...)...)

	return strings.TrimSpace(output), err
}

type allocator struct {
	mu      sync.Mutex
	what    string
	current int
	end     int
}

func newAllocator(what string, start, end int) *allocator {
	return &allocator{what: what, current: start, end: end}
}

func (alloc *allocator) next() (int, error) {
	alloc.mu.Lock()
	defer alloc.mu.Unlock()

	if alloc.current >= alloc.end {
		return 0, fmt.Errorf("no %s left below %d", alloc.what, alloc.end)
	}

	value := alloc.current
	alloc.current++

	return value, nil
}
