package ostscenario

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/engine"
	"github.com/ovirt/ost-gotests/pkg/network"
	"github.com/ovirt/ost-gotests/pkg/storagedomain"
	"github.com/ovirt/ost-gotests/pkg/vm"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/internal/versioning"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
)

const (
	// vncConsoleID is the id the engine gives the VNC console of a VM.
	vncConsoleID = "766e63"
	// vm2EmulatedMachine pins vm2 to a machine type every supported host offers.
	vm2EmulatedMachine = "pc-i440fx-rhel7.4.0"
)

func (env *Env) vm2() (*vm.Builder, error) {
	return vm.Pull(env.APIClient, ostparams.VM2Name)
}

// addHighPerfVM2 adds vm2 pinned to the hosts that are up, with most high performance settings applied.
func (env *Env) addHighPerfVM2(ctx context.Context) error {
	hosts, err := env.hostsInDataCenter()
	if err != nil {
		return err
	}

	var upHosts []string

	for _, hostBuilder := range hosts {
		if status, _ := hostBuilder.Definition.Status(); status == ovirtsdk4.HOSTSTATUS_UP {
			upHosts = append(upHosts, hostBuilder.Name())
		}
	}

	if len(upHosts) == 0 {
		return fmt.Errorf("no host is up in data center %s: %s", env.Config.DataCenterName, hostStatuses(hosts))
	}

	vmType := ovirtsdk4.VMTYPE_SERVER

	if highPerformance, _ := versioning.AtLeast(env.Config.ClusterVersion, "4.2"); highPerformance {
		vmType = ovirtsdk4.VMTYPE_HIGH_PERFORMANCE
	}

	step(fmt.Sprintf("Adding %s vm %s pinned to %v", vmType, ostparams.VM2Name, upHosts))

	vm2, err := vm.NewBuilder(env.APIClient, ostparams.VM2Name, env.Config.ClusterName).
		WithDescription("Mostly complete High-Performance VM configuration").
		WithCPU(2, 1, 1, ovirtsdk4.CPUMODE_HOST_PASSTHROUGH, "0", "1").
		WithGuaranteedMemory(256 * ostparams.MB).
		WithHighAvailability(100).
		WithPinnedHosts(upHosts...).
		WithoutPeripherals(vm2EmulatedMachine).
		WithType(vmType).
		WithOS("Linux").
		Create()
	if err != nil {
		return err
	}

	return vm2.WaitUntilStatus(ctx, ovirtsdk4.VMSTATUS_DOWN, env.Waiter.Interval, env.Waiter.Long)
}

// configureHighPerfVM2 drops the graphics consoles of vm2. Virtual NUMA nodes are not added because they cannot be
// combined with host pinning yet.
func (env *Env) configureHighPerfVM2(context.Context) error {
	vm2, err := env.vm2()
	if err != nil {
		return err
	}

	consoles, err := vm2.GraphicsConsoles()
	if err != nil {
		return err
	}

	for _, console := range consoles {
		if err := vm2.RemoveGraphicsConsole(console.MustId()); err != nil {
			return err
		}
	}

	return sequence.Skip("virtual numa nodes cannot be combined with host pinning")
}

// addGraphicsConsole removes the VNC console of vm0, when there is one besides SPICE, and adds it back.
func (env *Env) addGraphicsConsole(ctx context.Context) error {
	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	consoleCount := func(count int) func(context.Context) (bool, error) {
		return func(context.Context) (bool, error) {
			consoles, err := vm0.GraphicsConsoles()

			return len(consoles) == count, err
		}
	}

	consoles, err := vm0.GraphicsConsoles()
	if err != nil {
		return err
	}

	if len(consoles) == 2 {
		step("Removing the vnc console of " + ostparams.VM0Name)

		if err := vm0.RemoveGraphicsConsole(vncConsoleID); err != nil {
			return err
		}

		if err := env.Waiter.TrueWithinShort(ctx, consoleCount(1)); err != nil {
			return fmt.Errorf("vnc console of %s was not removed: %w", ostparams.VM0Name, err)
		}
	}

	step("Adding a vnc console to " + ostparams.VM0Name)

	if err := vm0.AddGraphicsConsole(ovirtsdk4.GRAPHICSTYPE_VNC); err != nil {
		return err
	}

	return env.Waiter.TrueWithinShort(ctx, consoleCount(2))
}

// firstVM0NIC returns the first NIC of vm0.
func (env *Env) firstVM0NIC() (*vm.Builder, *ovirtsdk4.Nic, error) {
	vm0, err := env.vm0()
	if err != nil {
		return nil, nil, err
	}

	nics, err := vm0.NICs()
	if err != nil {
		return nil, nil, err
	}

	if len(nics) == 0 {
		return nil, nil, fmt.Errorf("vm %s has no nics", ostparams.VM0Name)
	}

	return vm0, nics[0], nil
}

// addNetworkFilter moves the first NIC of vm0 to a new profile of the same network that applies the clean-traffic
// filter.
func (env *Env) addNetworkFilter(context.Context) error {
	vm0, nic, err := env.firstVM0NIC()
	if err != nil {
		return err
	}

	current, ok := nic.VnicProfile()
	if !ok {
		return fmt.Errorf("nic %s of %s has no vnic profile", nic.MustName(), ostparams.VM0Name)
	}

	currentProfile, err := network.PullProfileByID(env.APIClient, current.MustId())
	if err != nil {
		return err
	}

	filterID, err := engine.NetworkFilterID(env.APIClient, ostparams.NetworkFilterName)
	if err != nil {
		return err
	}

	filtered, err := network.NewProfileBuilder(
		env.APIClient, ostparams.NetworkFilterName+"_profile", currentProfile.NetworkID()).
		WithNetworkFilter(filterID).
		Create()
	if err != nil {
		return err
	}

	return vm0.SetNICProfile(nic.MustId(), filtered.ID())
}

func (env *Env) addFilterParameter(ctx context.Context) error {
	if env.Config.VM0IP == "" {
		return sequence.Skip("no %s address configured", ostparams.VM0Name)
	}

	vm0, nic, err := env.firstVM0NIC()
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		return vm0.AddNICFilterParameter(nic.MustId(), "IP", env.Config.VM0IP)
	}, ostparams.EventFilterParameterAdded)
}

func (env *Env) addSerialConsoleVM2(ctx context.Context) error {
	vm2, err := env.vm2()
	if err != nil {
		return err
	}

	enabled, err := vm2.SerialConsoleEnabled()
	if err != nil {
		return err
	}

	if enabled {
		glog.V(ostparams.OstLogLevel).Infof("Serial console of %s is already enabled", ostparams.VM2Name)

		return nil
	}

	return env.expectEvents(ctx, func(context.Context) error {
		return vm2.EnableSerialConsole()
	}, ostparams.EventVMUpdated)
}

// addVM2Lease keeps the lease of vm2 on the second NFS domain.
func (env *Env) addVM2Lease(ctx context.Context) error {
	if ok, reason := versioning.Requirement(env.Config.ClusterVersion, "4.1"); !ok {
		return sequence.Skip("vm leases are not supported: %s", reason)
	}

	vm2, err := env.vm2()
	if err != nil {
		return err
	}

	secondNFS, err := storagedomain.Pull(env.APIClient, ostparams.SecondNFSDomainName)
	if err != nil {
		return err
	}

	domainID := secondNFS.Object.MustId()

	if err := vm2.SetLease(domainID); err != nil {
		return err
	}

	return env.Waiter.TrueWithinShort(ctx, func(context.Context) (bool, error) {
		leaseDomainID, err := vm2.LeaseStorageDomainID()

		return leaseDomainID == domainID, err
	})
}
