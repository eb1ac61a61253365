package ostscenario

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/cluster"
	"github.com/ovirt/ost-gotests/pkg/datacenter"
	"github.com/ovirt/ost-gotests/pkg/engine"
	"github.com/ovirt/ost-gotests/pkg/host"
	"github.com/ovirt/ost-gotests/pkg/network"
	"github.com/ovirt/ost-gotests/pkg/vm"
	"github.com/ovirt/ost-gotests/tests/internal/await"
	"github.com/ovirt/ost-gotests/tests/internal/params"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/internal/url"
	"github.com/ovirt/ost-gotests/tests/internal/versioning"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
)

const (
	// Host status convergence runs a fixed number of attempts.
	hostStatusAttempts = 12
	hostStatusSleep    = 10 * time.Second
)

// Bootstrap returns the cases that build the test data center from a freshly installed engine.
func Bootstrap(env *Env) []sequence.Case {
	return []sequence.Case{
		sequence.New("copy storage script", 0, env.copyStorageScript),
		sequence.New("download engine certs", 1, env.downloadEngineCerts),
		env.engineCase("add dc", 2, env.addDataCenter),
		env.engineCase("add cluster", 3, env.addCluster),
		env.engineCase("add hosts", 4, env.addHosts),
		sequence.New("sync time", 5, env.syncTime),
		env.engineCase("get version", 6, env.getVersion),
		env.engineCase("get domains", 7, env.getDomains),
		env.engineCase("get operating systems", 8, env.getOperatingSystems),
		env.engineCase("get system options", 9, env.getSystemOptions),
		env.engineCase("get cluster levels", 10, env.getClusterLevels),
		env.engineCase("add affinity group", 11, env.addAffinityGroup),
		env.engineCase("add qos", 12, env.addQos),
		env.engineCase("add bookmark", 13, env.addBookmark),
		sequence.New("configure storage", 14, env.configureStorage),
		env.engineCase("list image repository images", 15, env.listRepositoryImages),
		env.engineCase("add dc quota", 16, env.addDataCenterQuota),
		env.engineCase("update default dc", 17, env.updateDefaultDataCenter),
		env.engineCase("update default cluster", 18, env.updateDefaultCluster),
		env.engineCase("add mac pool", 19, env.addMacPool),
		env.engineCase("remove default dc", 20, env.removeDefaultDataCenter),
		env.engineCase("remove default cluster", 21, env.removeDefaultCluster),
		env.engineCase("add quota storage limits", 22, env.addQuotaStorageLimits),
		env.engineCase("add quota cluster limits", 23, env.addQuotaClusterLimits),
		env.engineCase("set dc quota audit", 24, env.setQuotaAudit),
		env.engineCase("add role", 25, env.addRole),
		env.engineCase("add scheduling policy", 26, env.addSchedulingPolicy),
		env.engineCase("add affinity label", 27, env.addAffinityLabel),
		env.engineCase("add tag", 28, env.addTag),
		env.engineCase("add cpu profile", 29, env.addCPUProfile),
		env.engineCase("verify add hosts", 30, env.verifyAddHosts),
		env.engineCase("add master storage domain", 31, env.addMasterStorageDomain),
		env.engineCase("add blank vms", 32, env.addBlankVMs),
		env.engineCase("add direct lun vm0", 33, env.addDirectLUN),
		env.engineCase("add blank high perf vm2", 34, env.addHighPerfVM2),
		env.engineCase("configure high perf vm2", 35, env.configureHighPerfVM2),
		env.engineCase("add disk profile", 36, env.addDiskProfile),
		env.engineCase("get cluster enabled features", 37, env.getClusterEnabledFeatures),
		env.engineCase("get host numa nodes", 38, env.getHostNumaNodes),
		env.engineCase("import image repository images", 39, env.importRepositoryImages),
		env.engineCase("get fence agents", 40, env.getFenceAgents),
		env.engineCase("verify engine backup", 41, env.verifyEngineBackup),
		sequence.New("verify notifier", 42, env.verifyNotifier),
		env.engineCase("check update host", 43, env.checkUpdateHost),
		env.engineCase("add vnic passthrough profile", 44, env.addPassthroughProfile),
		env.engineCase("remove vnic passthrough profile", 45, env.removePassthroughProfile),
		env.engineCase("add nic", 46, env.addNIC),
		env.engineCase("add graphics console", 47, env.addGraphicsConsole),
		env.engineCase("add network filter", 48, env.addNetworkFilter),
		env.engineCase("add filter parameter", 49, env.addFilterParameter),
		env.engineCase("add serial console vm2", 50, env.addSerialConsoleVM2),
		env.engineCase("add instance type", 51, env.addInstanceType),
		env.engineCase("add event", 52, env.addEvent),
		env.engineCase("verify add all hosts", 53, env.verifyAddAllHosts),
		env.engineCase("complete hosts setup", 54, env.completeHostsSetup),
		env.engineCase("get host devices", 55, env.getHostDevices),
		env.engineCase("get host hooks", 56, env.getHostHooks),
		env.engineCase("get host stats", 57, env.getHostStats),
		env.engineCase("add secondary storage domains", 58, env.addSecondaryStorageDomains),
		env.engineCase("resize and refresh storage domain", 59, env.resizeAndRefreshStorageDomain),
		env.engineCase("add vm2 lease", 60, env.addVM2Lease),
		env.engineCase("add non vm network", 61, env.addNonVMNetwork),
		env.engineCase("add vm network", 62, env.addVMNetwork),
	}
}

func (env *Env) copyStorageScript(ctx context.Context) error {
	if err := env.checkEngineMachine(); err != nil {
		return err
	}

	step("Copying the storage setup script to the engine")

	return env.Engine.CopyTo(ctx, env.Config.StorageSetupScriptPath(), ostparams.RemoteStorageScript)
}

func (env *Env) downloadEngineCerts(ctx context.Context) error {
	address := env.Config.EngineIP
	if address == "" {
		address = env.Config.EngineFQDN
	}

	base := "https://" + address

	if err := os.MkdirAll(env.Config.CertsDir, 0755); err != nil {
		return fmt.Errorf("failed to create certs dir %s: %w", env.Config.CertsDir, err)
	}

	for _, name := range []string{"engine-ca.pem", "engine-rsa.pub"} {
		step(fmt.Sprintf("Downloading %s", name))

		source := base + params.EnginePKIPath + "?" + params.PKIResources[name]
		destination := filepath.Join(env.Config.CertsDir, name)

		err := env.Waiter.TrueWithinShort(ctx, func(ctx context.Context) (bool, error) {
			_, err := url.Download(ctx, source, destination, true)

			return err == nil, err
		})
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", name, err)
		}
	}

	step("Checking engine health")

	return env.Waiter.TrueWithinShort(ctx, func(ctx context.Context) (bool, error) {
		body, status, err := url.Fetch(ctx, base+params.EngineHealthPath, http.MethodGet, true)
		if err != nil {
			return false, err
		}

		return status == http.StatusOK && body == params.EngineHealthyResponse, nil
	})
}

func (env *Env) compatibility() (versioning.Compatibility, error) {
	return versioning.ParseCompatibility(env.Config.ClusterVersion)
}

func (env *Env) addDataCenter(ctx context.Context) error {
	version, err := env.compatibility()
	if err != nil {
		return err
	}

	step(fmt.Sprintf("Adding data center %s", env.Config.DataCenterName))

	return env.expectEvents(ctx, func(context.Context) error {
		_, err := datacenter.NewBuilder(env.APIClient, env.Config.DataCenterName).
			WithDescription("APIv4 DC").
			WithLocal(false).
			WithVersion(version.Major, version.Minor).
			Create()

		return err
	}, ostparams.EventDataCenterAdded)
}

func (env *Env) addCluster(ctx context.Context) error {
	version, err := env.compatibility()
	if err != nil {
		return err
	}

	step(fmt.Sprintf("Adding cluster %s", env.Config.ClusterName))

	return env.expectEvents(ctx, func(context.Context) error {
		_, err := cluster.NewBuilder(env.APIClient, env.Config.ClusterName, env.Config.DataCenterName).
			WithDescription("APIv4 Cluster").
			WithVersion(version.Major, version.Minor).
			WithMemoryPolicy(150, false).
			WithSchedulingPolicy("evenly_distributed").
			WithHAReservation().
			Create()

		return err
	}, ostparams.EventClusterAdded)
}

func (env *Env) addHosts(ctx context.Context) error {
	if len(env.Config.HostNames) == 0 {
		return fmt.Errorf("no hosts configured")
	}

	return env.expectEvents(ctx, func(context.Context) error {
		for _, name := range env.Config.HostNames {
			step(fmt.Sprintf("Adding host %s", name))

			_, err := host.NewBuilder(env.APIClient, name, name, env.Config.ClusterName).
				WithRootPassword(env.Config.SSHPassword).
				WithOverrideIptables().
				Create()
			if err != nil {
				return fmt.Errorf("failed to add host %s: %w", name, err)
			}
		}

		return nil
	}, ostparams.EventHostAdded)
}

func (env *Env) syncTime(ctx context.Context) error {
	if len(env.Hosts) == 0 {
		return sequence.Skip("no hosts reachable over ssh")
	}

	for _, hypervisor := range env.Hosts {
		step(fmt.Sprintf("Syncing time of %s with the engine", hypervisor.Name))

		if _, err := hypervisor.Run(ctx, "chronyc", "-4", "add", "server", env.Config.EngineFQDN); err != nil {
			return err
		}

		if _, err := hypervisor.Run(ctx, "chronyc", "-4", "makestep"); err != nil {
			return err
		}
	}

	return nil
}

func (env *Env) getVersion(context.Context) error {
	full, err := engine.Version(env.APIClient)
	if err != nil {
		return err
	}

	version, err := versioning.ParseCompatibility(full)
	if err != nil {
		return err
	}

	if version.Major != 4 {
		return fmt.Errorf("unexpected engine major version in %s", full)
	}

	return nil
}

func (env *Env) getDomains(context.Context) error {
	names, err := engine.DomainNames(env.APIClient)
	if err != nil {
		return err
	}

	if !slices.Contains(names, "internal-authz") {
		return fmt.Errorf("internal-authz domain not found in %v", names)
	}

	return nil
}

func (env *Env) getOperatingSystems(context.Context) error {
	names, err := engine.OperatingSystemNames(env.APIClient)
	if err != nil {
		return err
	}

	if !slices.Contains(names, ostparams.GuestOSType) {
		return fmt.Errorf("operating system %s not found", ostparams.GuestOSType)
	}

	return nil
}

// getSystemOptions reads the CPU types the engine offers at the test cluster level.
func (env *Env) getSystemOptions(context.Context) error {
	values, err := engine.SystemOptionValues(env.APIClient, ostparams.ServerCPUListOption, env.Config.ClusterVersion)
	if err != nil {
		return err
	}

	if len(values) == 0 {
		return fmt.Errorf("system option %s has no value for version %s", ostparams.ServerCPUListOption,
			env.Config.ClusterVersion)
	}

	return nil
}

func (env *Env) getClusterLevels(context.Context) error {
	levels, err := engine.ClusterLevels(env.APIClient)
	if err != nil {
		return err
	}

	if !slices.Contains(levels, env.Config.ClusterVersion) {
		return fmt.Errorf("cluster level %s not supported, engine offers %v", env.Config.ClusterVersion, levels)
	}

	return nil
}

func (env *Env) addAffinityGroup(ctx context.Context) error {
	testCluster, err := cluster.Pull(env.APIClient, env.Config.ClusterName)
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		_, err := testCluster.AddAffinityGroup("my_affinity_group", true, false)

		return err
	}, ostparams.EventAffinityGroupAdded)
}

func (env *Env) addQos(ctx context.Context) error {
	dataCenter, err := datacenter.Pull(env.APIClient, env.Config.DataCenterName)
	if err != nil {
		return err
	}

	entries := []*ovirtsdk4.Qos{
		ovirtsdk4.NewQosBuilder().Name("my_cpu_qos").Type(ovirtsdk4.QOSTYPE_CPU).CpuLimit(99).MustBuild(),
		ovirtsdk4.NewQosBuilder().Name("my_storage_qos").Type(ovirtsdk4.QOSTYPE_STORAGE).MaxIops(999999).
			Description("max_iops_qos").MustBuild(),
	}

	for _, entry := range entries {
		step(fmt.Sprintf("Adding qos %s", entry.MustName()))

		err := env.expectEvents(ctx, func(context.Context) error {
			_, err := dataCenter.AddQos(entry)

			return err
		}, ostparams.EventQosAdded)
		if err != nil {
			return err
		}
	}

	return nil
}

func (env *Env) addBookmark(ctx context.Context) error {
	return env.expectEvents(ctx, func(context.Context) error {
		_, err := engine.AddBookmark(env.APIClient, "my_bookmark", "vm:name=vm*")

		return err
	}, ostparams.EventBookmarkAdded)
}

func (env *Env) configureStorage(ctx context.Context) error {
	if err := env.checkEngineMachine(); err != nil {
		return err
	}

	step("Running the storage setup script on the engine")

	if _, err := env.Engine.Run(ctx, ostparams.RemoteStorageScript); err != nil {
		return fmt.Errorf("storage setup failed: %w", err)
	}

	return nil
}

func (env *Env) listRepositoryImages(ctx context.Context) error {
	return env.recordRepositoryImages(ctx, func() ([]string, error) {
		return engine.ImageNames(env.APIClient, env.Config.ImageRepository)
	})
}

// recordRepositoryImages raises the image repository flag once list returned images and the engine logged the
// listing. Only an unreachable provider skips the case.
func (env *Env) recordRepositoryImages(ctx context.Context, list func() ([]string, error)) error {
	var images []string

	err := env.expectEvents(ctx, func(context.Context) error {
		var err error

		images, err = list()

		return err
	}, ostparams.EventImagesListed)

	var providerErr *engine.ProviderError
	if errors.As(err, &providerErr) {
		return sequence.Skip("image repository %s is not available: %v", env.Config.ImageRepository, err)
	}

	if err != nil {
		return err
	}

	if len(images) == 0 {
		return sequence.Skip("image repository %s has no images", env.Config.ImageRepository)
	}

	return env.Session.Flag(ostparams.ImageRepositoryFlag).Raise("list image repository images")
}

func (env *Env) addDataCenterQuota(context.Context) error {
	dataCenter, err := datacenter.Pull(env.APIClient, env.Config.DataCenterName)
	if err != nil {
		return err
	}

	_, err = dataCenter.AddQuota(ostparams.DCQuotaName, "DC-QUOTA-DESCRIPTION", 99)

	return err
}

func (env *Env) addQuotaStorageLimits(context.Context) error {
	dataCenter, err := datacenter.Pull(env.APIClient, env.Config.DataCenterName)
	if err != nil {
		return err
	}

	return dataCenter.SetQuotaStorageLimit(ostparams.DCQuotaName, 500)
}

func (env *Env) addQuotaClusterLimits(context.Context) error {
	dataCenter, err := datacenter.Pull(env.APIClient, env.Config.DataCenterName)
	if err != nil {
		return err
	}

	return dataCenter.AddQuotaClusterLimit(ostparams.DCQuotaName, 20, 10000)
}

func (env *Env) updateDefaultDataCenter(ctx context.Context) error {
	defaultDataCenter, err := datacenter.Pull(env.APIClient, env.Config.DefaultDataCenterName)
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		_, err := defaultDataCenter.WithLocal(true).Update()

		return err
	}, ostparams.EventDataCenterUpdated)
}

func (env *Env) updateDefaultCluster(ctx context.Context) error {
	defaultCluster, err := cluster.Pull(env.APIClient, env.Config.DefaultClusterName)
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		_, err := defaultCluster.WithCPU("", ovirtsdk4.ARCHITECTURE_PPC64).Update()

		return err
	}, ostparams.EventClusterUpdated)
}

func (env *Env) addMacPool(ctx context.Context) error {
	var pool *ovirtsdk4.MacPool

	err := env.expectEvents(ctx, func(context.Context) error {
		var err error

		pool, err = engine.AddMacPool(env.APIClient, "mymacpool", "02:00:00:00:00:00", "02:00:00:01:00:00", false)

		return err
	}, ostparams.EventMacPoolAdded)
	if err != nil {
		return err
	}

	defaultCluster, err := cluster.Pull(env.APIClient, env.Config.DefaultClusterName)
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		_, err := defaultCluster.WithMacPool(pool.MustId()).Update()

		return err
	}, ostparams.EventClusterUpdated)
}

func (env *Env) removeDefaultDataCenter(ctx context.Context) error {
	defaultDataCenter, err := datacenter.Pull(env.APIClient, env.Config.DefaultDataCenterName)
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		return defaultDataCenter.Delete()
	}, ostparams.EventDataCenterRemoved)
}

func (env *Env) removeDefaultCluster(ctx context.Context) error {
	defaultCluster, err := cluster.Pull(env.APIClient, env.Config.DefaultClusterName)
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		return defaultCluster.Delete()
	}, ostparams.EventClusterRemoved)
}

func (env *Env) setQuotaAudit(context.Context) error {
	dataCenter, err := datacenter.Pull(env.APIClient, env.Config.DataCenterName)
	if err != nil {
		return err
	}

	_, err = dataCenter.WithQuotaMode(ovirtsdk4.QUOTAMODETYPE_AUDIT).Update()

	return err
}

func (env *Env) addRole(ctx context.Context) error {
	return env.expectEvents(ctx, func(context.Context) error {
		_, err := engine.AddRole(env.APIClient, "MyRole", ostparams.RolePermits...)

		return err
	}, ostparams.EventRoleAdded)
}

func (env *Env) addSchedulingPolicy(ctx context.Context) error {
	return env.expectEvents(ctx, func(context.Context) error {
		_, err := engine.AddSchedulingPolicy(
			env.APIClient, "my_scheduling_policy", "OptimalForEvenDistribution", "Migration", "HA", 2)

		return err
	}, ostparams.EventSchedulingPolicyAdded)
}

func (env *Env) addAffinityLabel(ctx context.Context) error {
	return env.expectEvents(ctx, func(context.Context) error {
		_, err := engine.AddAffinityLabel(env.APIClient, "my_affinity_label")

		return err
	}, ostparams.EventAffinityLabelAdded)
}

func (env *Env) addTag(context.Context) error {
	_, err := engine.AddTag(env.APIClient, "mytag", "My custom tag")

	return err
}

func (env *Env) addCPUProfile(ctx context.Context) error {
	testCluster, err := cluster.Pull(env.APIClient, env.Config.ClusterName)
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		_, err := testCluster.AddCPUProfile("my_cpu_profile", "", "")

		return err
	}, ostparams.EventCPUProfileAdded)
}

// verifyAddHosts waits until at least one host of the data center is up and stays up for two polls in a row.
func (env *Env) verifyAddHosts(ctx context.Context) error {
	var last []*host.Builder

	err := await.ConfirmedWithin(ctx, env.Waiter.Interval, env.Waiter.Long, func(context.Context) (bool, error) {
		hosts, err := env.hostsInDataCenter()
		if err != nil {
			return false, err
		}

		last = hosts

		return anyHostUp(hosts)
	}, await.WithTerminal(host.IsTerminal))
	if err != nil {
		return fmt.Errorf("no host came up: %s: %w", hostStatuses(last), err)
	}

	return nil
}

// anyHostUp reports whether one of hosts is up. A host that failed to install or became non operational fails the
// check right away.
func anyHostUp(hosts []*host.Builder) (bool, error) {
	for _, hostBuilder := range hosts {
		status, _ := hostBuilder.Definition.Status()

		up, err := host.CheckStatus(hostBuilder.Name(), status)
		if err != nil {
			return false, err
		}

		if up {
			return true, nil
		}
	}

	return false, nil
}

// verifyAddAllHosts waits for every host of the data center to be up, confirming the state on two consecutive
// attempts so a flapping host does not pass.
func (env *Env) verifyAddAllHosts(ctx context.Context) error {
	var (
		confirmer await.Confirmer
		last      []*host.Builder
	)

	confirmed, err := await.Attempts(ctx, hostStatusAttempts, hostStatusSleep, func(context.Context) (bool, error) {
		hosts, err := env.hostsInDataCenter()
		if err != nil {
			confirmer.Observe(false)

			return false, err
		}

		last = hosts
		allUp := len(hosts) > 0

		for _, hostBuilder := range hosts {
			if status, _ := hostBuilder.Definition.Status(); status != ovirtsdk4.HOSTSTATUS_UP {
				allUp = false
			}
		}

		return confirmer.Observe(allUp) == await.Confirmed, nil
	})
	if err != nil {
		return err
	}

	if !confirmed {
		return fmt.Errorf("not all hosts are up: %s", hostStatuses(last))
	}

	return nil
}

func (env *Env) addBlankVMs(ctx context.Context) error {
	specs := []struct {
		name   string
		memory int64
	}{
		{name: ostparams.BackupVMName, memory: 256 * ostparams.MB},
		{name: ostparams.VM0Name, memory: 384 * ostparams.MB},
	}

	var created []*vm.Builder

	for _, spec := range specs {
		step(fmt.Sprintf("Adding vm %s", spec.name))

		builder, err := vm.NewBuilder(env.APIClient, spec.name, env.Config.ClusterName).
			WithMemory(spec.memory).
			WithType(ovirtsdk4.VMTYPE_SERVER).
			WithOS(ostparams.GuestOSType).
			Create()
		if err != nil {
			return err
		}

		created = append(created, builder)
	}

	for _, builder := range created {
		err := builder.WaitUntilStatus(ctx, ovirtsdk4.VMSTATUS_DOWN, env.Waiter.Interval, env.Waiter.Short)
		if err != nil {
			return fmt.Errorf("vm %s did not reach down: %w", builder.Definition.MustName(), err)
		}
	}

	return nil
}

// getClusterEnabledFeatures lists the additional features of the test cluster. Clusters without any are skipped.
func (env *Env) getClusterEnabledFeatures(context.Context) error {
	testCluster, err := cluster.Pull(env.APIClient, env.Config.ClusterName)
	if err != nil {
		return err
	}

	features, err := testCluster.EnabledFeatures()
	if err != nil {
		return err
	}

	if len(features) == 0 {
		return sequence.Skip("cluster %s reports no enabled features", env.Config.ClusterName)
	}

	glog.V(ostparams.OstLogLevel).Infof("Cluster %s features: %v", env.Config.ClusterName, features)

	return nil
}

func (env *Env) getHostNumaNodes(context.Context) error {
	hypervisor, err := env.firstHost()
	if err != nil {
		return err
	}

	nodes, err := hypervisor.NumaNodes()
	if err != nil {
		return err
	}

	if len(nodes) == 0 {
		return fmt.Errorf("host %s reported no numa nodes", hypervisor.Name())
	}

	if index, _ := nodes[0].Index(); index != 0 {
		return fmt.Errorf("first numa node of host %s has index %d", hypervisor.Name(), index)
	}

	return nil
}

// getFenceAgents reads the fence agents of a host. No agent is added since fencing would interfere with later
// cases.
func (env *Env) getFenceAgents(context.Context) error {
	hypervisor, err := env.firstHost()
	if err != nil {
		return err
	}

	agents, err := hypervisor.FenceAgents()
	if err != nil {
		return err
	}

	glog.V(ostparams.OstLogLevel).Infof("Host %s has %d fence agents", hypervisor.Name(), len(agents))

	return sequence.Skip("adding a fence agent would fence hosts used by later cases")
}

// verifyNotifier checks that logins reached syslog and then stops the notifier and the trap daemon.
func (env *Env) verifyNotifier(ctx context.Context) error {
	if err := env.checkEngineMachine(); err != nil {
		return err
	}

	if _, err := env.Engine.Run(ctx, "grep", "USER_VDC_LOGIN", "/var/log/messages"); err != nil {
		return fmt.Errorf("no USER_VDC_LOGIN in the engine syslog: %w", err)
	}

	for _, service := range []string{"ovirt-engine-notifier", "snmptrapd"} {
		step("Stopping " + service)

		if _, err := env.Engine.Run(ctx, "systemctl", "stop", service); err != nil {
			return err
		}
	}

	return nil
}

func (env *Env) verifyEngineBackup(ctx context.Context) error {
	if err := env.checkEngineMachine(); err != nil {
		return err
	}

	backupFile := ostparams.EngineBackupDir + "/backup.tgz"

	if _, err := env.Engine.Run(ctx, "mkdir", "-p", ostparams.EngineBackupDir); err != nil {
		return err
	}

	step("Backing up the engine")

	err := env.expectEvents(ctx, func(ctx context.Context) error {
		_, err := env.Engine.Run(ctx, "engine-backup", "--mode=backup", "--file="+backupFile,
			"--log="+ostparams.EngineBackupDir+"/log.txt")

		return err
	}, ostparams.EventEngineBackupStarted, ostparams.EventEngineBackupCompleted)
	if err != nil {
		return err
	}

	step("Verifying the engine backup")

	_, err = env.Engine.Run(ctx, "engine-backup", "--mode=verify", "--file="+backupFile,
		"--log="+ostparams.EngineBackupDir+"/verify-log.txt")

	return err
}

func (env *Env) firstHost() (*host.Builder, error) {
	hosts, err := env.hostsInDataCenter()
	if err != nil {
		return nil, err
	}

	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts in data center %s", env.Config.DataCenterName)
	}

	return hosts[0], nil
}

func (env *Env) checkUpdateHost(ctx context.Context) error {
	hypervisor, err := env.firstHost()
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		return hypervisor.UpgradeCheck()
	}, ostparams.EventHostUpdatesCheckStarted, ostparams.EventHostUpdatesCheckDone)
}

func (env *Env) managementNetwork() (*network.Builder, error) {
	return network.Pull(env.APIClient, ostparams.ManagementNetwork, env.Config.DataCenterName)
}

func (env *Env) addPassthroughProfile(ctx context.Context) error {
	management, err := env.managementNetwork()
	if err != nil {
		return err
	}

	var profile *network.ProfileBuilder

	err = env.expectEvents(ctx, func(context.Context) error {
		var err error

		profile, err = network.NewProfileBuilder(env.APIClient, ostparams.PassthroughVnicProfile, management.ID()).
			WithPassThrough().
			Create()

		return err
	}, ostparams.EventVnicProfileAdded)
	if err != nil {
		return err
	}

	passThrough, ok := profile.Object.PassThrough()
	if !ok || passThrough.MustMode() != ovirtsdk4.VNICPASSTHROUGHMODE_ENABLED {
		return fmt.Errorf("vnic profile %s is not in passthrough mode", ostparams.PassthroughVnicProfile)
	}

	return nil
}

func (env *Env) removePassthroughProfile(ctx context.Context) error {
	management, err := env.managementNetwork()
	if err != nil {
		return err
	}

	profile, err := network.PullProfile(env.APIClient, ostparams.PassthroughVnicProfile, management.ID())
	if err != nil {
		return err
	}

	err = env.expectEvents(ctx, func(context.Context) error {
		return profile.Delete()
	}, ostparams.EventVnicProfileRemoved)
	if err != nil {
		return err
	}

	if profile.Exists() {
		return fmt.Errorf("vnic profile %s still exists", ostparams.PassthroughVnicProfile)
	}

	return nil
}

// addNICToVM0 connects vm0 to the management network through its default profile.
func (env *Env) addNICToVM0(name string) error {
	management, err := env.managementNetwork()
	if err != nil {
		return err
	}

	profile, err := network.PullProfile(env.APIClient, ostparams.ManagementNetwork, management.ID())
	if err != nil {
		return err
	}

	vm0, err := vm.Pull(env.APIClient, ostparams.VM0Name)
	if err != nil {
		return err
	}

	nics, err := vm0.NICs()
	if err != nil {
		return err
	}

	for _, nic := range nics {
		if nicName, _ := nic.Name(); nicName == name {
			return nil
		}
	}

	_, err = vm0.AddNIC(name, profile.ID())

	return err
}

func (env *Env) addNIC(context.Context) error {
	return env.addNICToVM0(ostparams.NICName)
}

func (env *Env) addInstanceType(ctx context.Context) error {
	return env.expectEvents(ctx, func(context.Context) error {
		_, err := engine.AddInstanceType(env.APIClient, "myinstancetype", "My instance type", 1*ostparams.GB, 2, 2)

		return err
	}, ostparams.EventInstanceTypeAdded)
}

func (env *Env) addEvent(ctx context.Context) error {
	if env.Events == nil {
		return fmt.Errorf("engine event log is not available")
	}

	return env.Events.Add(ctx, ostparams.EventOrigin, 1234567890, "ovirt-system-tests description")
}

func (env *Env) completeHostsSetup(ctx context.Context) error {
	if len(env.Hosts) == 0 {
		return sequence.Skip("no hosts reachable over ssh")
	}

	entries := make([]string, 0, len(env.Hosts))

	for _, hypervisor := range env.Hosts {
		output, err := hypervisor.Run(ctx, "hostname", "-I")
		if err != nil {
			return err
		}

		fields := strings.Fields(output)
		if len(fields) == 0 {
			return fmt.Errorf("host %s reported no address", hypervisor.Name)
		}

		entries = append(entries, fields[0]+" "+hypervisor.Name)
	}

	for _, hypervisor := range env.Hosts {
		step(fmt.Sprintf("Completing setup of %s", hypervisor.Name))

		for _, command := range ostparams.HostSetupCommands {
			if _, err := hypervisor.Run(ctx, command...); err != nil {
				return err
			}
		}

		// Static entries keep names from resolving to unexpected IPv6 addresses.
		for _, entry := range entries {
			if _, err := hypervisor.Run(ctx, "echo", entry, ">>", "/etc/hosts"); err != nil {
				return err
			}
		}
	}

	return nil
}

func (env *Env) getHostDevices(context.Context) error {
	hypervisor, err := env.firstHost()
	if err != nil {
		return err
	}

	devices, err := hypervisor.Devices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		return fmt.Errorf("host %s reported no devices", hypervisor.Name())
	}

	return nil
}

func (env *Env) getHostHooks(context.Context) error {
	hypervisor, err := env.firstHost()
	if err != nil {
		return err
	}

	_, err = hypervisor.Hooks()

	return err
}

func (env *Env) getHostStats(context.Context) error {
	hypervisor, err := env.firstHost()
	if err != nil {
		return err
	}

	statistics, err := hypervisor.Statistics()
	if err != nil {
		return err
	}

	for _, statistic := range statistics {
		if name, _ := statistic.Name(); name == "boot.time" {
			return nil
		}
	}

	return fmt.Errorf("host %s reported no boot.time statistic", hypervisor.Name())
}

func (env *Env) addNonVMNetwork(ctx context.Context) error {
	return env.addClusterNetwork(ctx,
		network.NewBuilder(env.APIClient, ostparams.MigrationNetwork, env.Config.DataCenterName).
			WithDescription(fmt.Sprintf("Non VM Network on VLAN %d, MTU 9000", ostparams.MigrationNetworkVlanID)).
			WithVlan(ostparams.MigrationNetworkVlanID).
			WithUsages().
			WithMTU(9000))
}

func (env *Env) addVMNetwork(ctx context.Context) error {
	return env.addClusterNetwork(ctx,
		network.NewBuilder(env.APIClient, ostparams.VMNetwork, env.Config.DataCenterName).
			WithDescription(fmt.Sprintf("VM Network on VLAN %d", ostparams.VMNetworkVlanID)).
			WithVlan(ostparams.VMNetworkVlanID).
			WithUsages(ovirtsdk4.NETWORKUSAGE_VM))
}

func (env *Env) addClusterNetwork(ctx context.Context, builder *network.Builder) error {
	err := env.expectEvents(ctx, func(context.Context) error {
		var err error

		builder, err = builder.Create()

		return err
	}, ostparams.EventNetworkAdded)
	if err != nil {
		return err
	}

	testCluster, err := cluster.Pull(env.APIClient, env.Config.ClusterName)
	if err != nil {
		return err
	}

	return testCluster.AttachNetwork(builder.ID(), false)
}
