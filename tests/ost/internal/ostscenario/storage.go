package ostscenario

import (
	"context"
	"fmt"

	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/datacenter"
	"github.com/ovirt/ost-gotests/pkg/engine"
	"github.com/ovirt/ost-gotests/pkg/storagedomain"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/internal/vector"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
)

const masterStorageISCSI = "iscsi"

func (env *Env) storageHost() string {
	if env.Config.StorageHost != "" {
		return env.Config.StorageHost
	}

	return env.Config.EngineFQDN
}

func (env *Env) nfsDomain(name, path string, version ovirtsdk4.NfsVersion) (*storagedomain.Builder, error) {
	hypervisor, err := env.firstHost()
	if err != nil {
		return nil, err
	}

	return storagedomain.NewNFSBuilder(env.APIClient, name, hypervisor.Name(), env.storageHost(), path, version), nil
}

func (env *Env) iscsiDomain(name string) (*storagedomain.Builder, error) {
	hypervisor, err := env.firstHost()
	if err != nil {
		return nil, err
	}

	return storagedomain.NewISCSIBuilder(env.APIClient, name, hypervisor.Name(), env.storageHost(),
		env.Config.ISCSIPort, env.Config.ISCSITarget, env.Config.ISCSILunIDs), nil
}

// addStorageDomain creates the domain, waits for it to be unattached and then attaches and activates it in the
// test data center.
func (env *Env) addStorageDomain(ctx context.Context, builder *storagedomain.Builder) error {
	dataCenter, err := datacenter.Pull(env.APIClient, env.Config.DataCenterName)
	if err != nil {
		return err
	}

	step(fmt.Sprintf("Adding storage domain %s", builder.Definition.MustName()))

	err = env.expectEvents(ctx, func(ctx context.Context) error {
		created, err := builder.Create()
		if err != nil {
			return err
		}

		return created.WaitUntilStatus(
			ctx, "", ovirtsdk4.STORAGEDOMAINSTATUS_UNATTACHED, env.Waiter.Interval, env.Waiter.Long)
	}, ostparams.EventStorageDomainAdded)
	if err != nil {
		return err
	}

	dataCenterID := dataCenter.Object.MustId()

	step(fmt.Sprintf("Attaching storage domain %s", builder.Definition.MustName()))

	return env.expectEvents(ctx, func(ctx context.Context) error {
		if err := builder.AttachTo(dataCenterID); err != nil {
			return err
		}

		return builder.WaitUntilStatus(
			ctx, dataCenterID, ovirtsdk4.STORAGEDOMAINSTATUS_ACTIVE, env.Waiter.Interval, env.Waiter.Long)
	}, ostparams.EventStorageDomainActivated, ostparams.EventStorageDomainAttached)
}

func (env *Env) addMasterStorageDomain(ctx context.Context) error {
	var (
		builder *storagedomain.Builder
		err     error
	)

	if env.Config.MasterStorageType == masterStorageISCSI {
		builder, err = env.iscsiDomain(ostparams.ISCSIDomainName)
	} else {
		builder, err = env.nfsDomain(ostparams.NFSDomainName, env.Config.NFSPath, ovirtsdk4.NFSVERSION_V4_2)
	}

	if err != nil {
		return err
	}

	return env.addStorageDomain(ctx, builder)
}

func (env *Env) addSecondaryStorageDomains(ctx context.Context) error {
	var (
		secondary *storagedomain.Builder
		err       error
	)

	if env.Config.MasterStorageType == masterStorageISCSI {
		secondary, err = env.nfsDomain(ostparams.NFSDomainName, env.Config.NFSPath, ovirtsdk4.NFSVERSION_V4_2)
	} else {
		secondary, err = env.iscsiDomain(ostparams.ISCSIDomainName)
	}

	if err != nil {
		return err
	}

	templates, err := env.nfsDomain(
		ostparams.TemplatesDomainName, env.Config.TemplatesNFSPath, ovirtsdk4.NFSVERSION_V4_1)
	if err != nil {
		return err
	}

	templates.WithType(ovirtsdk4.STORAGEDOMAINTYPE_EXPORT).WithStorageFormat(ovirtsdk4.STORAGEFORMAT_V1)

	secondNFS, err := env.nfsDomain(
		ostparams.SecondNFSDomainName, env.Config.SecondNFSPath, ovirtsdk4.NFSVERSION_V4_2)
	if err != nil {
		return err
	}

	return vector.RunAll(ctx,
		func(ctx context.Context) error { return env.addStorageDomain(ctx, secondary) },
		func(ctx context.Context) error { return env.addStorageDomain(ctx, templates) },
		func(ctx context.Context) error { return env.addStorageDomain(ctx, secondNFS) },
	)
}

func (env *Env) masterStorageDomainName() string {
	if env.Config.MasterStorageType == masterStorageISCSI {
		return ostparams.ISCSIDomainName
	}

	return ostparams.NFSDomainName
}

func (env *Env) addDiskProfile(ctx context.Context) error {
	master, err := storagedomain.Pull(env.APIClient, env.masterStorageDomainName())
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		_, err := master.AddDiskProfile("my_disk_profile", "", "")

		return err
	}, ostparams.EventDiskProfileAdded)
}

// importRepositoryImages copies the configured repository image into the master domain twice: once as a plain
// disk and once as the template later used by vm1.
func (env *Env) importRepositoryImages(ctx context.Context) error {
	if !env.Session.Flag(ostparams.ImageRepositoryFlag).IsRaised() {
		return sequence.Skip("image repository is not available")
	}

	if env.Config.RepositoryImage == "" || env.Config.RepositoryDisk == "" || env.Config.VMTemplate == "" {
		return sequence.Skip("no repository image configured")
	}

	repository, err := storagedomain.Pull(env.APIClient, env.Config.ImageRepository)
	if err != nil {
		return err
	}

	asDisk := storagedomain.ImageImport{
		ImageName:         env.Config.RepositoryImage,
		StorageDomainName: env.masterStorageDomainName(),
		ClusterName:       env.Config.ClusterName,
		DiskName:          env.Config.RepositoryDisk,
	}
	asTemplate := asDisk
	asTemplate.DiskName = env.Config.VMTemplate
	asTemplate.TemplateName = env.Config.VMTemplate
	asTemplate.AsTemplate = true

	err = vector.RunAll(ctx,
		func(context.Context) error { return repository.ImportImage(asDisk) },
		func(context.Context) error { return repository.ImportImage(asTemplate) },
	)
	if err != nil {
		return err
	}

	return env.Waiter.TrueWithinShort(ctx, func(context.Context) (bool, error) {
		for _, name := range []string{asDisk.DiskName, asTemplate.DiskName} {
			exists, err := engine.DiskExists(env.APIClient, name)
			if err != nil || !exists {
				return false, err
			}
		}

		return true, nil
	})
}

// resizeAndRefreshStorageDomain grows the first iSCSI backing device and asks the engine to pick up the new size.
func (env *Env) resizeAndRefreshStorageDomain(ctx context.Context) error {
	if len(env.Config.ISCSILunIDs) == 0 || env.Config.ISCSILunDevice == "" {
		return sequence.Skip("no iscsi luns configured")
	}

	if err := env.checkEngineMachine(); err != nil {
		return err
	}

	step("Resizing " + env.Config.ISCSILunDevice)

	if _, err := env.Engine.Run(ctx, "lvresize", "--size", "+3000M", env.Config.ISCSILunDevice); err != nil {
		return err
	}

	iscsi, err := storagedomain.Pull(env.APIClient, ostparams.ISCSIDomainName)
	if err != nil {
		return err
	}

	return env.expectEvents(ctx, func(context.Context) error {
		return iscsi.RefreshLUNs(env.storageHost(), env.Config.ISCSIPort, env.Config.ISCSITarget, env.Config.ISCSILunIDs)
	}, ostparams.EventLUNsRefreshed)
}
