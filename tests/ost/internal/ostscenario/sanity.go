package ostscenario

import (
	"context"
	"fmt"
	"slices"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/vm"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
)

// Sanity returns the cases that exercise a running VM: disks, snapshots, run, migration and hotplug.
func Sanity(env *Env) []sequence.Case {
	return []sequence.Case{
		env.engineCase("add vm blank", 0, env.addVMBlank),
		env.engineCase("add vm nic", 1, env.addVMNIC),
		env.engineCase("add disk", 2, env.addVMDisk),
		env.engineCase("snapshot merge", 3, env.snapshotMerge),
		env.engineCase("add vm template", 4, env.addVMFromTemplate),
		env.engineCase("add direct lun", 5, env.addDirectLUN),
		env.engineCase("vm run", 6, env.vmRun),
		env.engineCase("vm migrate", 7, env.vmMigrate),
		env.engineCase("snapshot live merge", 8, env.snapshotLiveMerge),
		env.engineCase("hotplug nic", 9, env.hotplugNIC),
		env.engineCase("hotplug disk", 10, env.hotplugDisk),
	}
}

func (env *Env) vm0() (*vm.Builder, error) {
	return vm.Pull(env.APIClient, ostparams.VM0Name)
}

// addVMBlank makes sure vm0 exists and is down. Bootstrap may have created it already.
func (env *Env) addVMBlank(ctx context.Context) error {
	vm0, err := vm.NewBuilder(env.APIClient, ostparams.VM0Name, env.Config.ClusterName).
		WithMemory(512 * ostparams.MB).
		WithType(ovirtsdk4.VMTYPE_SERVER).
		WithOS(ostparams.GuestOSType).
		Create()
	if err != nil {
		return err
	}

	return vm0.WaitUntilStatus(ctx, ovirtsdk4.VMSTATUS_DOWN, env.Waiter.Interval, env.Waiter.Short)
}

func (env *Env) addVMNIC(context.Context) error {
	return env.addNICToVM0(ostparams.NICName)
}

func (env *Env) addVMDisk(ctx context.Context) error {
	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	diskID, err := vm0.AddDisk(vm.DiskSpec{
		Name:              ostparams.Disk0Name,
		SizeBytes:         10 * ostparams.GB,
		StorageDomainName: env.masterStorageDomainName(),
		Bootable:          true,
		Active:            true,
	})
	if err != nil {
		return err
	}

	err = env.Waiter.TrueWithinLong(ctx, func(context.Context) (bool, error) {
		attachments, err := vm0.DiskAttachments()
		if err != nil {
			return false, err
		}

		for _, attachment := range attachments {
			disk, _ := attachment.Disk()
			if id, _ := disk.Id(); id == diskID {
				active, _ := attachment.Active()

				return active, nil
			}
		}

		return false, nil
	})
	if err != nil {
		return fmt.Errorf("disk %s was not activated: %w", ostparams.Disk0Name, err)
	}

	return vm0.WaitUntilDiskStatus(ctx, diskID, ovirtsdk4.DISKSTATUS_OK, env.Waiter.Interval, env.Waiter.Long)
}

// snapshot takes a snapshot of a single disk and waits for its jobs to finish and the snapshots to settle.
func (env *Env) snapshot(ctx context.Context, vmBuilder *vm.Builder, spec vm.SnapshotSpec) error {
	correlationID := vm.CorrelationID()

	step(fmt.Sprintf("Taking snapshot %s with correlation id %s", spec.Description, correlationID))

	if _, err := vmBuilder.CreateSnapshot(spec, correlationID); err != nil {
		return err
	}

	err := env.Waiter.TrueWithinShort(ctx, func(context.Context) (bool, error) {
		return vmBuilder.JobsFinished(correlationID)
	})
	if err != nil {
		return fmt.Errorf("jobs of snapshot %s did not finish: %w", spec.Description, err)
	}

	return env.Waiter.TrueWithinShort(ctx, func(context.Context) (bool, error) {
		return vmBuilder.SnapshotsOK()
	})
}

// mergeSnapshots takes two snapshots, removes the older one and waits until the VM is left with the active
// snapshot and the newer one.
func (env *Env) mergeSnapshots(ctx context.Context, prefix string, persistMemory bool) error {
	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	diskID, err := vm0.DiskID(ostparams.Disk0Name)
	if err != nil {
		return err
	}

	for _, suffix := range []string{"1", "2"} {
		err := env.snapshot(ctx, vm0, vm.SnapshotSpec{
			Description:   prefix + suffix,
			PersistMemory: persistMemory,
			DiskIDs:       []string{diskID},
		})
		if err != nil {
			return err
		}
	}

	snapshots, err := vm0.Snapshots()
	if err != nil {
		return err
	}

	if len(snapshots) < 2 {
		return fmt.Errorf("expected at least 2 snapshots of %s, found %d", ostparams.VM0Name, len(snapshots))
	}

	step("Merging the older snapshot")

	if err := vm0.RemoveSnapshot(snapshots[len(snapshots)-2].MustId(), vm.CorrelationID()); err != nil {
		return err
	}

	return env.Waiter.TrueWithinLong(ctx, func(context.Context) (bool, error) {
		snapshots, err := vm0.Snapshots()
		if err != nil || len(snapshots) != 2 {
			return false, err
		}

		return vm0.SnapshotsOK()
	})
}

func (env *Env) snapshotMerge(ctx context.Context) error {
	return env.mergeSnapshots(ctx, "dead_snap", false)
}

func (env *Env) addVMFromTemplate(ctx context.Context) error {
	if !env.Session.Flag(ostparams.ImageRepositoryFlag).IsRaised() {
		return sequence.Skip("image repository is not available")
	}

	if env.Config.VMTemplate == "" {
		return sequence.Skip("no vm template configured")
	}

	vm1, err := vm.NewBuilder(env.APIClient, ostparams.VM1Name, env.Config.ClusterName).
		WithTemplate(env.Config.VMTemplate).
		WithMemory(512 * ostparams.MB).
		Create()
	if err != nil {
		return err
	}

	if err := vm1.WaitUntilStatus(ctx, ovirtsdk4.VMSTATUS_DOWN, env.Waiter.Interval, env.Waiter.Long); err != nil {
		return err
	}

	return env.Waiter.TrueWithinLong(ctx, func(context.Context) (bool, error) {
		attachments, err := vm1.DiskAttachments()
		if err != nil || len(attachments) == 0 {
			return false, err
		}

		disk, ok := attachments[0].Disk()
		if !ok {
			return false, nil
		}

		status, err := vm1.DiskStatus(disk.MustId())

		return status == ovirtsdk4.DISKSTATUS_OK, err
	})
}

// addDirectLUN attaches the configured LUN to vm0 unless bootstrap already did.
func (env *Env) addDirectLUN(ctx context.Context) error {
	if env.Config.ISCSIDirectLUNID == "" {
		return sequence.Skip("no direct lun configured")
	}

	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	if diskID, err := vm0.DiskID(ostparams.DirectLUNDiskName); err == nil {
		glog.V(ostparams.OstLogLevel).Infof("Direct lun %s is already attached to %s", diskID, ostparams.VM0Name)

		return nil
	}

	return env.expectEvents(ctx, func(context.Context) error {
		diskID, err := vm0.AddDirectLUN(ostparams.DirectLUNDiskName, env.storageHost(), env.Config.ISCSIPort,
			env.Config.ISCSITarget, env.Config.ISCSIDirectLUNID)
		if err != nil {
			return err
		}

		attachments, err := vm0.DiskAttachments()
		if err != nil {
			return err
		}

		for _, attachment := range attachments {
			if disk, ok := attachment.Disk(); ok && disk.MustId() == diskID {
				return nil
			}
		}

		return fmt.Errorf("failed to attach direct lun disk to %s", ostparams.VM0Name)
	}, ostparams.EventDirectLUNAttached)
}

// clusterHostNames returns the names of the test cluster hosts, sorted.
func (env *Env) clusterHostNames() ([]string, error) {
	hosts, err := env.hostsInCluster()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(hosts))
	for _, hostBuilder := range hosts {
		names = append(names, hostBuilder.Name())
	}

	slices.Sort(names)

	return names, nil
}

func (env *Env) vmRun(ctx context.Context) error {
	names, err := env.clusterHostNames()
	if err != nil {
		return err
	}

	if len(names) == 0 {
		return fmt.Errorf("cluster %s has no hosts", env.Config.ClusterName)
	}

	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	step(fmt.Sprintf("Starting %s on %s", ostparams.VM0Name, names[0]))

	if err := vm0.Start(names[0]); err != nil {
		return err
	}

	return vm0.WaitUntilStatus(ctx, ovirtsdk4.VMSTATUS_UP, env.Waiter.Interval, env.Waiter.Short)
}

func (env *Env) vmMigrate(ctx context.Context) error {
	names, err := env.clusterHostNames()
	if err != nil {
		return err
	}

	if len(names) < 2 {
		return sequence.Skip("migration needs two hosts, cluster %s has %d", env.Config.ClusterName, len(names))
	}

	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	step(fmt.Sprintf("Migrating %s to %s", ostparams.VM0Name, names[1]))

	if err := vm0.Migrate(names[1]); err != nil {
		return err
	}

	return vm0.WaitUntilStatus(ctx, ovirtsdk4.VMSTATUS_UP, env.Waiter.Interval, env.Waiter.Short)
}

func (env *Env) snapshotLiveMerge(ctx context.Context) error {
	if err := env.mergeSnapshots(ctx, "live_snap", true); err != nil {
		return err
	}

	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	if err := vm0.WaitUntilStatus(ctx, ovirtsdk4.VMSTATUS_UP, env.Waiter.Interval, env.Waiter.Short); err != nil {
		return err
	}

	diskID, err := vm0.DiskID(ostparams.Disk0Name)
	if err != nil {
		return err
	}

	return vm0.WaitUntilDiskStatus(ctx, diskID, ovirtsdk4.DISKSTATUS_OK, env.Waiter.Interval, env.Waiter.Long)
}

func (env *Env) hotplugNIC(ctx context.Context) error {
	if err := env.addNICToVM0(ostparams.HotplugNICName); err != nil {
		return err
	}

	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	nics, err := vm0.NICs()
	if err != nil {
		return err
	}

	if !slices.ContainsFunc(nics, func(nic *ovirtsdk4.Nic) bool {
		name, _ := nic.Name()

		return name == ostparams.HotplugNICName
	}) {
		return fmt.Errorf("nic %s was not plugged into %s", ostparams.HotplugNICName, ostparams.VM0Name)
	}

	return vm0.WaitUntilStatus(ctx, ovirtsdk4.VMSTATUS_UP, env.Waiter.Interval, env.Waiter.Short)
}

func (env *Env) hotplugDisk(ctx context.Context) error {
	vm0, err := env.vm0()
	if err != nil {
		return err
	}

	diskID, err := vm0.AddDisk(vm.DiskSpec{
		Name:              ostparams.Disk1Name,
		SizeBytes:         10 * ostparams.GB,
		StorageDomainName: env.masterStorageDomainName(),
		Active:            true,
	})
	if err != nil {
		return err
	}

	return vm0.WaitUntilDiskStatus(ctx, diskID, ovirtsdk4.DISKSTATUS_OK, env.Waiter.Interval, env.Waiter.Short)
}
