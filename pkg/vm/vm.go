package vm

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"k8s.io/apimachinery/pkg/util/wait"
)

// BlankTemplate is the template every engine ships with.
const BlankTemplate = "Blank"

// Builder provides struct for virtual machine object containing connection to the engine and the VM definition.
type Builder struct {
	// VM definition. Used to create the VM object.
	Definition *ovirtsdk4.Vm
	// Created VM object.
	Object *ovirtsdk4.Vm
	// Used in functions that define or mutate the VM definition. errorMsg is processed before the VM object is
	// created.
	errorMsg  string
	apiClient *clients.Settings
}

// NewBuilder creates new instance of Builder for a VM from the blank template in the given cluster.
func NewBuilder(apiClient *clients.Settings, name, clusterName string) *Builder {
	glog.V(100).Infof("Initializing new vm structure %s in cluster %s", name, clusterName)

	builder := Builder{
		apiClient: apiClient,
		Definition: ovirtsdk4.NewVmBuilder().
			Name(name).
			Cluster(ovirtsdk4.NewClusterBuilder().Name(clusterName).MustBuild()).
			Template(ovirtsdk4.NewTemplateBuilder().Name(BlankTemplate).MustBuild()).
			MustBuild(),
	}

	if apiClient == nil {
		builder.errorMsg = "vm 'apiClient' cannot be nil"
	}

	if clusterName == "" {
		builder.errorMsg = "vm 'clusterName' cannot be empty"
	}

	if name == "" {
		builder.errorMsg = "vm 'name' cannot be empty"
	}

	return &builder
}

// Pull loads an existing VM into Builder struct.
func Pull(apiClient *clients.Settings, name string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing vm name: %s", name)

	if name == "" {
		return nil, fmt.Errorf("vm 'name' cannot be empty")
	}

	builder := Builder{
		apiClient:  apiClient,
		Definition: ovirtsdk4.NewVmBuilder().Name(name).MustBuild(),
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("vm object %s does not exist", name)
	}

	builder.Definition = builder.Object

	return &builder, nil
}

// WithTemplate replaces the blank template.
func (builder *Builder) WithTemplate(templateName string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	if templateName == "" {
		builder.errorMsg = "vm 'templateName' cannot be empty"

		return builder
	}

	builder.Definition.SetTemplate(ovirtsdk4.NewTemplateBuilder().Name(templateName).MustBuild())

	return builder
}

// WithMemory sets the VM memory in bytes.
func (builder *Builder) WithMemory(bytes int64) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	if bytes <= 0 {
		builder.errorMsg = "vm memory must be positive"

		return builder
	}

	builder.Definition.SetMemory(bytes)

	return builder
}

// WithType sets the VM type.
func (builder *Builder) WithType(vmType ovirtsdk4.VmType) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetType(vmType)

	return builder
}

// WithOS sets the guest operating system type.
func (builder *Builder) WithOS(osType string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetOs(ovirtsdk4.NewOperatingSystemBuilder().Type(osType).MustBuild())

	return builder
}

// Create makes the VM and stores the created object in the builder.
func (builder *Builder) Create() (*Builder, error) {
	if valid, err := builder.validate(); !valid {
		return builder, err
	}

	glog.V(100).Infof("Creating vm %s", builder.Definition.MustName())

	if builder.Exists() {
		return builder, nil
	}

	response, err := builder.apiClient.SystemService().VmsService().Add().Vm(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustVm()

	return builder, nil
}

// Delete removes the VM.
func (builder *Builder) Delete() error {
	if valid, err := builder.validate(); !valid {
		return err
	}

	if !builder.Exists() {
		return nil
	}

	glog.V(100).Infof("Deleting vm %s", builder.Definition.MustName())

	if _, err := builder.service().Remove().Send(); err != nil {
		return err
	}

	builder.Object = nil

	return nil
}

// Exists tells whether the VM exists and refreshes Object.
func (builder *Builder) Exists() bool {
	if valid, _ := builder.validate(); !valid {
		return false
	}

	name := builder.Definition.MustName()

	glog.V(100).Infof("Checking if vm %s exists", name)

	response, err := builder.apiClient.SystemService().VmsService().List().Search("name=" + name).Send()
	if err != nil {
		glog.V(100).Infof("Failed to list vms: %v", err)

		return false
	}

	vms, ok := response.Vms()
	if !ok || len(vms.Slice()) == 0 {
		return false
	}

	builder.Object = vms.Slice()[0]

	return true
}

// Status returns the current VM status.
func (builder *Builder) Status() (ovirtsdk4.VmStatus, error) {
	if !builder.Exists() {
		return "", fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	status, ok := builder.Object.Status()
	if !ok {
		return "", fmt.Errorf("vm %s reported no status", builder.Definition.MustName())
	}

	return status, nil
}

// WaitUntilStatus polls until the VM reaches the wanted status.
func (builder *Builder) WaitUntilStatus(
	ctx context.Context, status ovirtsdk4.VmStatus, interval, timeout time.Duration) error {
	glog.V(100).Infof("Waiting for vm %s to become %s", builder.Definition.MustName(), status)

	return wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(context.Context) (bool, error) {
		current, err := builder.Status()
		if err != nil {
			glog.V(100).Infof("Vm status unavailable: %v", err)

			return false, nil
		}

		return current == status, nil
	})
}

// Start runs the VM pinned to the named host.
func (builder *Builder) Start(hostName string) error {
	if !builder.Exists() {
		return fmt.Errorf("cannot start non-existent vm %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Starting vm %s on host %s", builder.Definition.MustName(), hostName)

	placement := ovirtsdk4.NewVmPlacementPolicyBuilder().
		HostsOfAny(ovirtsdk4.NewHostBuilder().Name(hostName).MustBuild()).
		MustBuild()

	_, err := builder.service().Start().
		Vm(ovirtsdk4.NewVmBuilder().PlacementPolicy(placement).MustBuild()).
		Send()

	return err
}

// Migrate moves the running VM to the named host.
func (builder *Builder) Migrate(hostName string) error {
	if !builder.Exists() {
		return fmt.Errorf("cannot migrate non-existent vm %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Migrating vm %s to host %s", builder.Definition.MustName(), hostName)

	_, err := builder.service().Migrate().Host(ovirtsdk4.NewHostBuilder().Name(hostName).MustBuild()).Send()

	return err
}

// HostID returns the id of the host running the VM, or an empty string when it is not running.
func (builder *Builder) HostID() (string, error) {
	if !builder.Exists() {
		return "", fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	host, ok := builder.Object.Host()
	if !ok {
		return "", nil
	}

	id, _ := host.Id()

	return id, nil
}

// AddNIC adds a virtio NIC connected through the vNIC profile with profileID.
func (builder *Builder) AddNIC(name, profileID string) (*ovirtsdk4.Nic, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("cannot add nic to non-existent vm %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding nic %s to vm %s", name, builder.Definition.MustName())

	nic := ovirtsdk4.NewNicBuilder().Name(name).Interface(ovirtsdk4.NICINTERFACE_VIRTIO)
	if profileID != "" {
		nic.VnicProfile(ovirtsdk4.NewVnicProfileBuilder().Id(profileID).MustBuild())
	}

	response, err := builder.service().NicsService().Add().Nic(nic.MustBuild()).Send()
	if err != nil {
		return nil, err
	}

	return response.MustNic(), nil
}

// NICs returns the VM NICs.
func (builder *Builder) NICs() ([]*ovirtsdk4.Nic, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	response, err := builder.service().NicsService().List().Send()
	if err != nil {
		return nil, err
	}

	nics, ok := response.Nics()
	if !ok {
		return nil, nil
	}

	return nics.Slice(), nil
}

func (builder *Builder) service() *ovirtsdk4.VmService {
	return builder.apiClient.SystemService().VmsService().VmService(builder.Object.MustId())
}

func (builder *Builder) validate() (bool, error) {
	if builder == nil {
		glog.V(100).Info("The vm builder is uninitialized")

		return false, fmt.Errorf("error: received nil vm builder")
	}

	if builder.Definition == nil {
		glog.V(100).Info("The vm is undefined")

		return false, fmt.Errorf("can not redefine the undefined vm")
	}

	if builder.apiClient == nil {
		glog.V(100).Info("The vm builder apiclient is nil")

		return false, fmt.Errorf("vm builder cannot have nil apiClient")
	}

	if builder.errorMsg != "" {
		glog.V(100).Infof("The vm builder has error message: %s", builder.errorMsg)

		return false, fmt.Errorf("%s", builder.errorMsg)
	}

	return true, nil
}
