package vm

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"k8s.io/apimachinery/pkg/util/wait"
)

// DiskSpec describes a disk to create and attach to a VM.
type DiskSpec struct {
	Name              string
	SizeBytes         int64
	StorageDomainName string
	Bootable          bool
	// Active attaches the disk as plugged. Setting it on a running VM hotplugs the disk.
	Active bool
}

// AddDisk creates a thin provisioned virtio disk and attaches it to the VM, returning the disk id.
func (builder *Builder) AddDisk(spec DiskSpec) (string, error) {
	if spec.Name == "" || spec.StorageDomainName == "" {
		return "", fmt.Errorf("disk 'Name' and 'StorageDomainName' cannot be empty")
	}

	if spec.SizeBytes <= 0 {
		return "", fmt.Errorf("disk %s size must be positive", spec.Name)
	}

	if !builder.Exists() {
		return "", fmt.Errorf("cannot add disk to non-existent vm %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding disk %s to vm %s on %s", spec.Name, builder.Definition.MustName(), spec.StorageDomainName)

	disk := ovirtsdk4.NewDiskBuilder().
		Name(spec.Name).
		ProvisionedSize(spec.SizeBytes).
		Format(ovirtsdk4.DISKFORMAT_COW).
		StorageDomainsOfAny(ovirtsdk4.NewStorageDomainBuilder().Name(spec.StorageDomainName).MustBuild()).
		MustBuild()

	attachment := ovirtsdk4.NewDiskAttachmentBuilder().
		Disk(disk).
		Interface(ovirtsdk4.DISKINTERFACE_VIRTIO).
		Bootable(spec.Bootable).
		Active(spec.Active).
		MustBuild()

	response, err := builder.service().DiskAttachmentsService().Add().Attachment(attachment).Send()
	if err != nil {
		return "", err
	}

	created, ok := response.MustAttachment().Disk()
	if !ok {
		return "", fmt.Errorf("engine returned no disk for attachment %s", spec.Name)
	}

	return created.MustId(), nil
}

// AddDirectLUN attaches an iSCSI LUN to the VM as a disk, returning the disk id.
func (builder *Builder) AddDirectLUN(name, address string, port int64, target, lunID string) (string, error) {
	if name == "" || lunID == "" {
		return "", fmt.Errorf("direct lun 'name' and 'lunID' cannot be empty")
	}

	if !builder.Exists() {
		return "", fmt.Errorf("cannot add direct lun to non-existent vm %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding direct lun %s (%s) to vm %s", name, lunID, builder.Definition.MustName())

	lun := ovirtsdk4.NewLogicalUnitBuilder().Id(lunID).Address(address).Port(port).Target(target).MustBuild()

	disk := ovirtsdk4.NewDiskBuilder().
		Name(name).
		Shareable(false).
		LunStorage(ovirtsdk4.NewHostStorageBuilder().
			Type(ovirtsdk4.STORAGETYPE_ISCSI).
			LogicalUnitsOfAny(lun).
			MustBuild()).
		MustBuild()

	attachment := ovirtsdk4.NewDiskAttachmentBuilder().
		Disk(disk).
		Interface(ovirtsdk4.DISKINTERFACE_VIRTIO).
		Bootable(false).
		Active(true).
		MustBuild()

	response, err := builder.service().DiskAttachmentsService().Add().Attachment(attachment).Send()
	if err != nil {
		return "", err
	}

	created, ok := response.MustAttachment().Disk()
	if !ok {
		return "", fmt.Errorf("engine returned no disk for direct lun %s", name)
	}

	return created.MustId(), nil
}

// DiskAttachments returns the disk attachments of the VM.
func (builder *Builder) DiskAttachments() ([]*ovirtsdk4.DiskAttachment, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	response, err := builder.service().DiskAttachmentsService().List().Send()
	if err != nil {
		return nil, err
	}

	attachments, ok := response.Attachments()
	if !ok {
		return nil, nil
	}

	return attachments.Slice(), nil
}

// DiskStatus returns the status of the disk with diskID.
func (builder *Builder) DiskStatus(diskID string) (ovirtsdk4.DiskStatus, error) {
	if valid, err := builder.validate(); !valid {
		return "", err
	}

	response, err := builder.apiClient.SystemService().DisksService().DiskService(diskID).Get().Send()
	if err != nil {
		return "", err
	}

	status, ok := response.MustDisk().Status()
	if !ok {
		return "", fmt.Errorf("disk %s reported no status", diskID)
	}

	return status, nil
}

// WaitUntilDiskStatus polls until the disk reaches the wanted status.
func (builder *Builder) WaitUntilDiskStatus(
	ctx context.Context, diskID string, status ovirtsdk4.DiskStatus, interval, timeout time.Duration) error {
	glog.V(100).Infof("Waiting for disk %s to become %s", diskID, status)

	return wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(context.Context) (bool, error) {
		current, err := builder.DiskStatus(diskID)
		if err != nil {
			glog.V(100).Infof("Disk status unavailable: %v", err)

			return false, nil
		}

		return current == status, nil
	})
}

// DiskID returns the id of the disk attached to the VM under name.
func (builder *Builder) DiskID(name string) (string, error) {
	attachments, err := builder.DiskAttachments()
	if err != nil {
		return "", err
	}

	response, err := builder.apiClient.SystemService().DisksService().List().Search("name=" + name).Send()
	if err != nil {
		return "", err
	}

	disks, ok := response.Disks()
	if !ok {
		return "", fmt.Errorf("disk %s does not exist", name)
	}

	for _, attachment := range attachments {
		attached, ok := attachment.Disk()
		if !ok {
			continue
		}

		for _, disk := range disks.Slice() {
			if disk.MustId() == attached.MustId() {
				return disk.MustId(), nil
			}
		}
	}

	return "", fmt.Errorf("disk %s is not attached to vm %s", name, builder.Definition.MustName())
}
