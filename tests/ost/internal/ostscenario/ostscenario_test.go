package ostscenario

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/engine"
	"github.com/ovirt/ost-gotests/pkg/host"
	"github.com/ovirt/ost-gotests/tests/internal/await"
	"github.com/ovirt/ost-gotests/tests/internal/config"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/internal/testevent"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostconfig"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineEnv() *Env {
	return &Env{
		Config:  &ostconfig.OSTConfig{GeneralConfig: &config.GeneralConfig{}},
		Session: sequence.NewSession(),
	}
}

// fakeEventLog is an in-memory engine audit log.
type fakeEventLog struct {
	mu     sync.Mutex
	events []testevent.Event
}

func (log *fakeEventLog) LastEventID(context.Context) (int64, error) {
	log.mu.Lock()
	defer log.mu.Unlock()

	return int64(len(log.events)), nil
}

func (log *fakeEventLog) EventsSince(_ context.Context, id int64) ([]testevent.Event, error) {
	log.mu.Lock()
	defer log.mu.Unlock()

	if id >= int64(len(log.events)) {
		return nil, nil
	}

	return slices.Clone(log.events[id:]), nil
}

func (log *fakeEventLog) Add(_ context.Context, _ string, customID int64, _ string) error {
	log.mu.Lock()
	defer log.mu.Unlock()

	log.events = append(log.events, testevent.Event{ID: int64(len(log.events) + 1), Code: customID})

	return nil
}

func eventEnv() (*Env, *fakeEventLog) {
	eventLog := &fakeEventLog{}

	env := offlineEnv()
	env.Config.ImageRepository = "ovirt-image-repository"
	env.Events = eventLog
	env.Waiter = await.NewWaiter(5*time.Millisecond, 50*time.Millisecond, 50*time.Millisecond)

	return env, eventLog
}

func TestBasicNamesAreUnique(t *testing.T) {
	err := sequence.NewRegistry().Add(Basic(offlineEnv())...)
	assert.NoError(t, err)
}

func TestBasicHasNoDuplicateOrders(t *testing.T) {
	assert.Empty(t, sequence.DuplicateOrders(Basic(offlineEnv())))
}

func TestBasicOrderBlocks(t *testing.T) {
	testCases := []struct {
		label string
		low   int
		high  int
		count int
	}{
		{label: ostparams.LabelBootstrap, low: ostparams.BootstrapOffset, high: ostparams.SanityOffset,
			count: len(Bootstrap(offlineEnv()))},
		{label: ostparams.LabelSanity, low: ostparams.SanityOffset, high: ostparams.NetworkByLabelOffset,
			count: len(Sanity(offlineEnv()))},
		{label: ostparams.LabelNetworkByLabel, low: ostparams.NetworkByLabelOffset, high: 300,
			count: len(NetworkByLabel(offlineEnv()))},
	}

	cases := Basic(offlineEnv())

	for _, testCase := range testCases {
		found := 0

		for _, scenarioCase := range cases {
			if !slices.Contains(scenarioCase.Labels, testCase.label) {
				continue
			}

			found++

			require.NotNil(t, scenarioCase.Order, scenarioCase.Name)
			assert.GreaterOrEqual(t, *scenarioCase.Order, testCase.low, scenarioCase.Name)
			assert.Less(t, *scenarioCase.Order, testCase.high, scenarioCase.Name)
		}

		assert.Equal(t, testCase.count, found, testCase.label)
	}
}

func TestBasicRunsModulesInFileOrder(t *testing.T) {
	sorted := sequence.Sort(Basic(offlineEnv()))

	require.NotEmpty(t, sorted)
	assert.Equal(t, "copy storage script", sorted[0].Name)
	assert.Equal(t, "assign labeled network", sorted[len(sorted)-1].Name)

	for index := 1; index < len(sorted); index++ {
		assert.LessOrEqual(t, *sorted[index-1].Order, *sorted[index].Order)
	}
}

func TestEngineCasesFailWithoutConnection(t *testing.T) {
	env := offlineEnv()

	for _, name := range []string{"add dc", "add vm blank", "add labeled network"} {
		testCase, found := sequence.NewRegistry().MustAdd(Basic(env)...).Get(name)
		require.True(t, found, name)

		result := sequence.Execute(context.Background(), testCase)
		assert.Equal(t, sequence.Failed, result.Outcome, name)
		assert.EqualError(t, result.Err, "engine connection is not available", name)
	}
}

func TestOptionalCasesSkip(t *testing.T) {
	env := offlineEnv()
	env.Config.VMTemplate = "template"

	testCases := []struct {
		name string
		run  sequence.Func
	}{
		{name: "template without image repository", run: env.addVMFromTemplate},
		{name: "direct lun without lun id", run: env.addDirectLUN},
		{name: "time sync without hosts", run: env.syncTime},
		{name: "hosts setup without hosts", run: env.completeHostsSetup},
		{name: "filter parameter without vm0 address", run: env.addFilterParameter},
		{name: "resize without iscsi luns", run: env.resizeAndRefreshStorageDomain},
		{name: "repository import without image repository", run: env.importRepositoryImages},
	}

	for _, testCase := range testCases {
		var skipErr *sequence.SkipError

		err := testCase.run(context.Background())
		assert.True(t, errors.As(err, &skipErr), testCase.name)
	}
}

func TestBootstrapCoversEveryOrder(t *testing.T) {
	cases := Bootstrap(offlineEnv())
	orders := make([]int, 0, len(cases))

	for _, bootstrapCase := range cases {
		require.NotNil(t, bootstrapCase.Order, bootstrapCase.Name)
		orders = append(orders, *bootstrapCase.Order)
	}

	slices.Sort(orders)

	require.Len(t, orders, 63)

	for index, order := range orders {
		assert.Equal(t, index, order)
	}
}

func TestVMLeaseNeedsClusterLevel(t *testing.T) {
	env := offlineEnv()
	env.Config.ClusterVersion = "4.0"

	var skipErr *sequence.SkipError

	err := env.addVM2Lease(context.Background())
	require.True(t, errors.As(err, &skipErr))
	assert.Contains(t, skipErr.Reason, "vm leases are not supported")
}

func TestRepositoryImportNeedsConfiguredImage(t *testing.T) {
	env := offlineEnv()
	require.NoError(t, env.Session.Flag(ostparams.ImageRepositoryFlag).Raise("test"))

	var skipErr *sequence.SkipError

	err := env.importRepositoryImages(context.Background())
	require.True(t, errors.As(err, &skipErr))
	assert.Equal(t, "no repository image configured", skipErr.Reason)
}

func TestBootstrapEngineCasesFailWithoutConnection(t *testing.T) {
	registry := sequence.NewRegistry().MustAdd(Bootstrap(offlineEnv())...)

	for _, name := range []string{"get system options", "add quota storage limits", "add blank high perf vm2",
		"get host numa nodes", "add graphics console", "add vm2 lease"} {
		testCase, found := registry.Get(name)
		require.True(t, found, name)

		result := sequence.Execute(context.Background(), testCase)
		assert.Equal(t, sequence.Failed, result.Outcome, name)
	}
}

func TestTemplateNeedsConfiguredTemplate(t *testing.T) {
	env := offlineEnv()
	require.NoError(t, env.Session.Flag(ostparams.ImageRepositoryFlag).Raise("test"))

	var skipErr *sequence.SkipError

	err := env.addVMFromTemplate(context.Background())
	require.True(t, errors.As(err, &skipErr))
	assert.Equal(t, "no vm template configured", skipErr.Reason)
}

func TestExpectEventsWithoutEventLog(t *testing.T) {
	called := false

	err := offlineEnv().expectEvents(context.Background(), func(context.Context) error {
		called = true

		return nil
	}, ostparams.EventDataCenterAdded)

	assert.Error(t, err)
	assert.False(t, called)
}

func TestMachineCasesNeedSSH(t *testing.T) {
	env := offlineEnv()

	assert.EqualError(t, env.copyStorageScript(context.Background()),
		"ssh access to the engine machine is not configured")
	assert.EqualError(t, env.configureStorage(context.Background()),
		"ssh access to the engine machine is not configured")
	assert.EqualError(t, env.verifyNotifier(context.Background()),
		"ssh access to the engine machine is not configured")
}

func TestMasterStorageDomainName(t *testing.T) {
	env := offlineEnv()
	assert.Equal(t, ostparams.NFSDomainName, env.masterStorageDomainName())

	env.Config.MasterStorageType = "iscsi"
	assert.Equal(t, ostparams.ISCSIDomainName, env.masterStorageDomainName())
}

func TestStorageHostFallsBackToEngine(t *testing.T) {
	env := offlineEnv()
	env.Config.EngineFQDN = "engine"
	assert.Equal(t, "engine", env.storageHost())

	env.Config.StorageHost = "storage"
	assert.Equal(t, "storage", env.storageHost())
}

func TestRepositoryImagesOutcome(t *testing.T) {
	testCases := []struct {
		name            string
		list            func(log *fakeEventLog) ([]string, error)
		expectedOutcome sequence.Outcome
		expectedFlag    bool
	}{
		{
			name: "listing logged",
			list: func(log *fakeEventLog) ([]string, error) {
				return []string{"CirrOS 0.4.0"}, log.Add(context.Background(), "", ostparams.EventImagesListed, "")
			},
			expectedOutcome: sequence.Passed,
			expectedFlag:    true,
		},
		{
			name: "listing not logged",
			list: func(*fakeEventLog) ([]string, error) {
				return []string{"CirrOS 0.4.0"}, nil
			},
			expectedOutcome: sequence.Failed,
		},
		{
			name: "provider unreachable",
			list: func(*fakeEventLog) ([]string, error) {
				return nil, &engine.ProviderError{Provider: "ovirt-image-repository", Err: errors.New("connection refused")}
			},
			expectedOutcome: sequence.Skipped,
		},
		{
			name: "repository empty",
			list: func(log *fakeEventLog) ([]string, error) {
				return nil, log.Add(context.Background(), "", ostparams.EventImagesListed, "")
			},
			expectedOutcome: sequence.Skipped,
		},
	}

	for _, testCase := range testCases {
		env, eventLog := eventEnv()

		result := sequence.Execute(context.Background(), sequence.New("list image repository images", 15,
			func(ctx context.Context) error {
				return env.recordRepositoryImages(ctx, func() ([]string, error) {
					return testCase.list(eventLog)
				})
			}))

		assert.Equal(t, testCase.expectedOutcome, result.Outcome, testCase.name)
		assert.Equal(t, testCase.expectedFlag, env.Session.Flag(ostparams.ImageRepositoryFlag).IsRaised(),
			testCase.name)
	}
}

func TestRepositoryImagesNotLoggedReportsMissingCode(t *testing.T) {
	env, _ := eventEnv()

	err := env.recordRepositoryImages(context.Background(), func() ([]string, error) {
		return []string{"CirrOS 0.4.0"}, nil
	})

	var (
		missingErr *testevent.MissingCodesError
		skipErr    *sequence.SkipError
	)

	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, []int64{ostparams.EventImagesListed}, missingErr.Missing)
	assert.False(t, errors.As(err, &skipErr))
}

func TestAnyHostUp(t *testing.T) {
	hostIn := func(name string, status ovirtsdk4.HostStatus) *host.Builder {
		return &host.Builder{Definition: ovirtsdk4.NewHostBuilder().Name(name).Status(status).MustBuild()}
	}

	testCases := []struct {
		name             string
		hosts            []*host.Builder
		expectedUp       bool
		expectedTerminal bool
	}{
		{name: "no hosts"},
		{name: "installing", hosts: []*host.Builder{hostIn("host-0", ovirtsdk4.HOSTSTATUS_INSTALLING)}},
		{
			name: "one up",
			hosts: []*host.Builder{
				hostIn("host-0", ovirtsdk4.HOSTSTATUS_INSTALLING), hostIn("host-1", ovirtsdk4.HOSTSTATUS_UP),
			},
			expectedUp: true,
		},
		{
			name:             "install failed",
			hosts:            []*host.Builder{hostIn("host-0", ovirtsdk4.HOSTSTATUS_INSTALL_FAILED)},
			expectedTerminal: true,
		},
	}

	for _, testCase := range testCases {
		up, err := anyHostUp(testCase.hosts)

		assert.Equal(t, testCase.expectedUp, up, testCase.name)
		assert.Equal(t, testCase.expectedTerminal, host.IsTerminal(err), testCase.name)
	}
}

func TestAnyHostUpStopsWaitOnInstallFailure(t *testing.T) {
	calls := 0
	hosts := []*host.Builder{{
		Definition: ovirtsdk4.NewHostBuilder().Name("host-0").Status(ovirtsdk4.HOSTSTATUS_INSTALL_FAILED).MustBuild(),
	}}

	err := await.ConfirmedWithin(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++

		return anyHostUp(hosts)
	}, await.WithTerminal(host.IsTerminal))

	var statusErr *host.StatusError

	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "host-0", statusErr.Host)
	assert.Equal(t, 1, calls)
}

func TestLabelHostsKeepsHostOrder(t *testing.T) {
	hosts := []*host.Builder{
		{Definition: ovirtsdk4.NewHostBuilder().Name("host-0").MustBuild()},
		{Definition: ovirtsdk4.NewHostBuilder().Name("host-1").MustBuild()},
	}

	var (
		mu      sync.Mutex
		visited []string
	)

	labelled, err := labelHosts(context.Background(), hosts, func(hostBuilder *host.Builder) (string, error) {
		mu.Lock()
		defer mu.Unlock()

		visited = append(visited, hostBuilder.Name())

		return hostBuilder.Name() + "/eth0", nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"host-0/eth0", "host-1/eth0"}, labelled)
	assert.ElementsMatch(t, []string{"host-0", "host-1"}, visited)
}

func TestLabelHostsReportsEveryFailure(t *testing.T) {
	hosts := []*host.Builder{
		{Definition: ovirtsdk4.NewHostBuilder().Name("host-0").MustBuild()},
		{Definition: ovirtsdk4.NewHostBuilder().Name("host-1").MustBuild()},
	}

	_, err := labelHosts(context.Background(), hosts, func(hostBuilder *host.Builder) (string, error) {
		return "", fmt.Errorf("host %s has no nics", hostBuilder.Name())
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "host host-0 has no nics")
	assert.Contains(t, err.Error(), "host host-1 has no nics")
}
