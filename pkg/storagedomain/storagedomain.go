package storagedomain

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Builder provides struct for storage domain object containing connection to the engine and the storage domain
// definition.
type Builder struct {
	// Storage domain definition. Used to create the storage domain.
	Definition *ovirtsdk4.StorageDomain
	// Created storage domain object.
	Object *ovirtsdk4.StorageDomain
	// Used in functions that define or mutate the definition. errorMsg is processed before the storage domain is
	// created.
	errorMsg  string
	apiClient *clients.Settings
}

// NewNFSBuilder creates a Builder for an NFS data domain served at address:path and created through hostName.
func NewNFSBuilder(
	apiClient *clients.Settings, name, hostName, address, path string, version ovirtsdk4.NfsVersion) *Builder {
	glog.V(100).Infof("Initializing new NFS storage domain %s on %s:%s", name, address, path)

	builder := newBuilder(apiClient, name, hostName)
	if builder.errorMsg != "" {
		return builder
	}

	if address == "" || path == "" {
		builder.errorMsg = "nfs storage domain 'address' and 'path' cannot be empty"

		return builder
	}

	builder.Definition.SetStorage(ovirtsdk4.NewHostStorageBuilder().
		Type(ovirtsdk4.STORAGETYPE_NFS).
		Address(address).
		Path(path).
		NfsVersion(version).
		MustBuild())

	return builder
}

// NewISCSIBuilder creates a Builder for an iSCSI data domain over the given LUNs of target.
func NewISCSIBuilder(
	apiClient *clients.Settings, name, hostName, address string, port int64, target string, lunIDs []string) *Builder {
	glog.V(100).Infof("Initializing new iSCSI storage domain %s on %s target %s", name, address, target)

	builder := newBuilder(apiClient, name, hostName)
	if builder.errorMsg != "" {
		return builder
	}

	if len(lunIDs) == 0 {
		builder.errorMsg = "iscsi storage domain requires at least one lun"

		return builder
	}

	builder.Definition.SetStorage(ovirtsdk4.NewHostStorageBuilder().
		Type(ovirtsdk4.STORAGETYPE_ISCSI).
		OverrideLuns(true).
		LogicalUnitsOfAny(logicalUnits(address, port, target, lunIDs)...).
		MustBuild())

	return builder
}

func logicalUnits(address string, port int64, target string, lunIDs []string) []*ovirtsdk4.LogicalUnit {
	luns := make([]*ovirtsdk4.LogicalUnit, 0, len(lunIDs))
	for _, lunID := range lunIDs {
		luns = append(luns, ovirtsdk4.NewLogicalUnitBuilder().
			Id(lunID).
			Address(address).
			Port(port).
			Target(target).
			MustBuild())
	}

	return luns
}

func newBuilder(apiClient *clients.Settings, name, hostName string) *Builder {
	builder := Builder{
		apiClient: apiClient,
		Definition: ovirtsdk4.NewStorageDomainBuilder().
			Name(name).
			Type(ovirtsdk4.STORAGEDOMAINTYPE_DATA).
			Host(ovirtsdk4.NewHostBuilder().Name(hostName).MustBuild()).
			MustBuild(),
	}

	if apiClient == nil {
		builder.errorMsg = "storage domain 'apiClient' cannot be nil"
	}

	if hostName == "" {
		builder.errorMsg = "storage domain 'hostName' cannot be empty"
	}

	if name == "" {
		builder.errorMsg = "storage domain 'name' cannot be empty"
	}

	return &builder
}

// Pull loads an existing storage domain into Builder struct.
func Pull(apiClient *clients.Settings, name string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing storage domain name: %s", name)

	if name == "" {
		return nil, fmt.Errorf("storage domain 'name' cannot be empty")
	}

	builder := Builder{
		apiClient:  apiClient,
		Definition: ovirtsdk4.NewStorageDomainBuilder().Name(name).MustBuild(),
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("storage domain object %s does not exist", name)
	}

	builder.Definition = builder.Object

	return &builder, nil
}

// WithStorageFormat sets the storage format version.
func (builder *Builder) WithStorageFormat(format ovirtsdk4.StorageFormat) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetStorageFormat(format)

	return builder
}

// WithType replaces the data domain type, for export or ISO domains.
func (builder *Builder) WithType(domainType ovirtsdk4.StorageDomainType) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetType(domainType)

	return builder
}

// WithDiscardAfterDelete enables discarding blocks of removed disks.
func (builder *Builder) WithDiscardAfterDelete() *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetDiscardAfterDelete(true)

	return builder
}

// Create makes the storage domain and stores the created object in the builder.
func (builder *Builder) Create() (*Builder, error) {
	if valid, err := builder.validate(); !valid {
		return builder, err
	}

	glog.V(100).Infof("Creating storage domain %s", builder.Definition.MustName())

	if builder.Exists() {
		return builder, nil
	}

	response, err := builder.apiClient.SystemService().StorageDomainsService().Add().
		StorageDomain(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustStorageDomain()

	return builder, nil
}

// Exists tells whether the storage domain exists and refreshes Object.
func (builder *Builder) Exists() bool {
	if valid, _ := builder.validate(); !valid {
		return false
	}

	name := builder.Definition.MustName()

	glog.V(100).Infof("Checking if storage domain %s exists", name)

	response, err := builder.apiClient.SystemService().StorageDomainsService().List().Search("name=" + name).Send()
	if err != nil {
		glog.V(100).Infof("Failed to list storage domains: %v", err)

		return false
	}

	domains, ok := response.StorageDomains()
	if !ok || len(domains.Slice()) == 0 {
		return false
	}

	builder.Object = domains.Slice()[0]

	return true
}

// Status returns the storage domain status. Inside a data center the status comes from the data center view,
// otherwise from the engine-wide view.
func (builder *Builder) Status(dataCenterID string) (ovirtsdk4.StorageDomainStatus, error) {
	if !builder.Exists() {
		return "", fmt.Errorf("storage domain %s does not exist", builder.Definition.MustName())
	}

	object := builder.Object

	if dataCenterID != "" {
		response, err := builder.apiClient.SystemService().DataCentersService().DataCenterService(dataCenterID).
			StorageDomainsService().StorageDomainService(builder.Object.MustId()).Get().Send()
		if err != nil {
			return "", err
		}

		object = response.MustStorageDomain()
	}

	status, ok := object.Status()
	if !ok {
		return "", fmt.Errorf("storage domain %s reported no status", builder.Definition.MustName())
	}

	return status, nil
}

// WaitUntilStatus polls until the storage domain reaches the wanted status.
func (builder *Builder) WaitUntilStatus(
	ctx context.Context,
	dataCenterID string,
	status ovirtsdk4.StorageDomainStatus,
	interval, timeout time.Duration) error {
	glog.V(100).Infof("Waiting for storage domain %s to become %s", builder.Definition.MustName(), status)

	return wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(context.Context) (bool, error) {
		current, err := builder.Status(dataCenterID)
		if err != nil {
			glog.V(100).Infof("Storage domain status unavailable: %v", err)

			return false, nil
		}

		return current == status, nil
	})
}

// AttachTo attaches the storage domain to a data center.
func (builder *Builder) AttachTo(dataCenterID string) error {
	if !builder.Exists() {
		return fmt.Errorf("cannot attach non-existent storage domain %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Attaching storage domain %s to data center %s", builder.Definition.MustName(), dataCenterID)

	_, err := builder.apiClient.SystemService().DataCentersService().DataCenterService(dataCenterID).
		StorageDomainsService().Add().
		StorageDomain(ovirtsdk4.NewStorageDomainBuilder().Id(builder.Object.MustId()).MustBuild()).Send()

	return err
}

// AddDiskProfile adds a disk profile on the storage domain, optionally bound to a storage QoS entry.
func (builder *Builder) AddDiskProfile(name, description, qosID string) (*ovirtsdk4.DiskProfile, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("storage domain %s does not exist", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding disk profile %s to storage domain %s", name, builder.Definition.MustName())

	profile := ovirtsdk4.NewDiskProfileBuilder().
		Name(name).
		Description(description).
		StorageDomain(ovirtsdk4.NewStorageDomainBuilder().Id(builder.Object.MustId()).MustBuild())
	if qosID != "" {
		profile.Qos(ovirtsdk4.NewQosBuilder().Id(qosID).MustBuild())
	}

	response, err := builder.apiClient.SystemService().DiskProfilesService().Add().Profile(profile.MustBuild()).Send()
	if err != nil {
		return nil, err
	}

	return response.MustProfile(), nil
}

// RefreshLUNs makes the engine pick up the new size of the given LUNs of an iSCSI domain. The call returns once the
// refresh is done.
func (builder *Builder) RefreshLUNs(address string, port int64, target string, lunIDs []string) error {
	if len(lunIDs) == 0 {
		return fmt.Errorf("refreshing luns requires at least one lun")
	}

	if !builder.Exists() {
		return fmt.Errorf("storage domain %s does not exist", builder.Definition.MustName())
	}

	glog.V(100).Infof("Refreshing luns %v of storage domain %s", lunIDs, builder.Definition.MustName())

	_, err := builder.service().RefreshLuns().
		LogicalUnitsOfAny(logicalUnits(address, port, target, lunIDs)...).
		Async(false).
		Send()

	return err
}

// ImageImport describes an image of an image repository domain to import into a data domain.
type ImageImport struct {
	ImageName         string
	StorageDomainName string
	ClusterName       string
	TemplateName      string
	DiskName          string
	// AsTemplate imports the image as a template called TemplateName instead of a floating disk.
	AsTemplate bool
}

// ImportImage imports an image of this image repository domain.
func (builder *Builder) ImportImage(spec ImageImport) error {
	if spec.ImageName == "" || spec.StorageDomainName == "" || spec.DiskName == "" {
		return fmt.Errorf("image import 'ImageName', 'StorageDomainName' and 'DiskName' cannot be empty")
	}

	if !builder.Exists() {
		return fmt.Errorf("storage domain %s does not exist", builder.Definition.MustName())
	}

	imagesService := builder.service().ImagesService()

	response, err := imagesService.List().Send()
	if err != nil {
		return err
	}

	imageID := ""

	if images, ok := response.Images(); ok {
		for _, image := range images.Slice() {
			if name, _ := image.Name(); name == spec.ImageName {
				imageID = image.MustId()

				break
			}
		}
	}

	if imageID == "" {
		return fmt.Errorf("image %s not found in %s", spec.ImageName, builder.Definition.MustName())
	}

	glog.V(100).Infof("Importing image %s into %s as %s (template: %t)",
		spec.ImageName, spec.StorageDomainName, spec.DiskName, spec.AsTemplate)

	_, err = imagesService.ImageService(imageID).Import().
		StorageDomain(ovirtsdk4.NewStorageDomainBuilder().Name(spec.StorageDomainName).MustBuild()).
		Template(ovirtsdk4.NewTemplateBuilder().Name(spec.TemplateName).MustBuild()).
		Cluster(ovirtsdk4.NewClusterBuilder().Name(spec.ClusterName).MustBuild()).
		ImportAsTemplate(spec.AsTemplate).
		Disk(ovirtsdk4.NewDiskBuilder().Name(spec.DiskName).MustBuild()).
		Send()

	return err
}

func (builder *Builder) service() *ovirtsdk4.StorageDomainService {
	return builder.apiClient.SystemService().StorageDomainsService().StorageDomainService(builder.Object.MustId())
}

func (builder *Builder) validate() (bool, error) {
	if builder == nil {
		glog.V(100).Info("The storage domain builder is uninitialized")

		return false, fmt.Errorf("error: received nil storage domain builder")
	}

	if builder.Definition == nil {
		glog.V(100).Info("The storage domain is undefined")

		return false, fmt.Errorf("can not redefine the undefined storage domain")
	}

	if builder.apiClient == nil {
		glog.V(100).Info("The storage domain builder apiclient is nil")

		return false, fmt.Errorf("storage domain builder cannot have nil apiClient")
	}

	if builder.errorMsg != "" {
		glog.V(100).Infof("The storage domain builder has error message: %s", builder.errorMsg)

		return false, fmt.Errorf("%s", builder.errorMsg)
	}

	return true, nil
}
