package network

import (
	"fmt"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
)

// Builder provides struct for logical network object containing connection to the engine and the network
// definition.
type Builder struct {
	// Network definition. Used to create the network object.
	Definition *ovirtsdk4.Network
	// Created network object.
	Object *ovirtsdk4.Network
	// Used in functions that define or mutate the network definition. errorMsg is processed before the network
	// object is created.
	errorMsg  string
	apiClient *clients.Settings
}

// NewBuilder creates new instance of Builder for a logical network in the given data center.
func NewBuilder(apiClient *clients.Settings, name, dataCenterName string) *Builder {
	glog.V(100).Infof("Initializing new network structure %s in data center %s", name, dataCenterName)

	builder := Builder{
		apiClient: apiClient,
		Definition: ovirtsdk4.NewNetworkBuilder().
			Name(name).
			DataCenter(ovirtsdk4.NewDataCenterBuilder().Name(dataCenterName).MustBuild()).
			MustBuild(),
	}

	if apiClient == nil {
		builder.errorMsg = "network 'apiClient' cannot be nil"
	}

	if dataCenterName == "" {
		builder.errorMsg = "network 'dataCenterName' cannot be empty"
	}

	if name == "" {
		builder.errorMsg = "network 'name' cannot be empty"
	}

	return &builder
}

// Pull loads an existing network of a data center into Builder struct.
func Pull(apiClient *clients.Settings, name, dataCenterName string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing network %s of data center %s", name, dataCenterName)

	builder := NewBuilder(apiClient, name, dataCenterName)
	if builder.errorMsg != "" {
		return nil, fmt.Errorf("%s", builder.errorMsg)
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("network object %s does not exist in data center %s", name, dataCenterName)
	}

	builder.Definition = builder.Object

	return builder, nil
}

// WithVlan tags the network with a VLAN id.
func (builder *Builder) WithVlan(vlanID int64) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	if vlanID < 1 || vlanID > 4094 {
		builder.errorMsg = fmt.Sprintf("network vlan id %d is out of range 1-4094", vlanID)

		return builder
	}

	builder.Definition.SetVlan(ovirtsdk4.NewVlanBuilder().Id(vlanID).MustBuild())

	return builder
}

// WithMTU sets the network MTU.
func (builder *Builder) WithMTU(mtu int64) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetMtu(mtu)

	return builder
}

// WithDescription sets the network description.
func (builder *Builder) WithDescription(description string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetDescription(description)

	return builder
}

// WithUsages sets the network usages. Without the VM usage the network is a non-VM network.
func (builder *Builder) WithUsages(usages ...ovirtsdk4.NetworkUsage) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	if usages == nil {
		usages = []ovirtsdk4.NetworkUsage{}
	}

	builder.Definition.SetUsages(usages)

	return builder
}

// Create makes a network according to the definition and stores the created object in the builder.
func (builder *Builder) Create() (*Builder, error) {
	if valid, err := builder.validate(); !valid {
		return builder, err
	}

	glog.V(100).Infof("Creating network %s", builder.Definition.MustName())

	if builder.Exists() {
		return builder, nil
	}

	response, err := builder.apiClient.SystemService().NetworksService().Add().Network(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustNetwork()

	return builder, nil
}

// Delete removes the network.
func (builder *Builder) Delete() error {
	if valid, err := builder.validate(); !valid {
		return err
	}

	if !builder.Exists() {
		return nil
	}

	glog.V(100).Infof("Deleting network %s", builder.Definition.MustName())

	if _, err := builder.service().Remove().Send(); err != nil {
		return err
	}

	builder.Object = nil

	return nil
}

// Exists tells whether the network exists in its data center and refreshes Object.
func (builder *Builder) Exists() bool {
	if valid, _ := builder.validate(); !valid {
		return false
	}

	query := fmt.Sprintf("name=%s", builder.Definition.MustName())
	if dataCenter, ok := builder.Definition.DataCenter(); ok {
		if name, ok := dataCenter.Name(); ok {
			query += " and datacenter=" + name
		}
	}

	glog.V(100).Infof("Checking if network exists with query %q", query)

	response, err := builder.apiClient.SystemService().NetworksService().List().Search(query).Send()
	if err != nil {
		glog.V(100).Infof("Failed to list networks: %v", err)

		return false
	}

	networks, ok := response.Networks()
	if !ok || len(networks.Slice()) == 0 {
		return false
	}

	builder.Object = networks.Slice()[0]

	return true
}

// ID returns the id of the created network or an empty string.
func (builder *Builder) ID() string {
	if builder == nil || builder.Object == nil {
		return ""
	}

	id, _ := builder.Object.Id()

	return id
}

// AddLabel puts a network label on the network so that host NICs carrying the same label get it attached.
func (builder *Builder) AddLabel(label string) error {
	if !builder.Exists() {
		return fmt.Errorf("cannot label non-existent network %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding label %s to network %s", label, builder.Definition.MustName())

	_, err := builder.service().NetworkLabelsService().Add().
		Label(ovirtsdk4.NewNetworkLabelBuilder().Id(label).MustBuild()).Send()

	return err
}

// Labels returns the label ids of the network.
func (builder *Builder) Labels() ([]string, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("network %s does not exist", builder.Definition.MustName())
	}

	response, err := builder.service().NetworkLabelsService().List().Send()
	if err != nil {
		return nil, err
	}

	labels, ok := response.Labels()
	if !ok {
		return nil, nil
	}

	var ids []string

	for _, label := range labels.Slice() {
		if id, ok := label.Id(); ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (builder *Builder) service() *ovirtsdk4.NetworkService {
	return builder.apiClient.SystemService().NetworksService().NetworkService(builder.Object.MustId())
}

func (builder *Builder) validate() (bool, error) {
	if builder == nil {
		glog.V(100).Info("The network builder is uninitialized")

		return false, fmt.Errorf("error: received nil network builder")
	}

	if builder.Definition == nil {
		glog.V(100).Info("The network is undefined")

		return false, fmt.Errorf("can not redefine the undefined network")
	}

	if builder.apiClient == nil {
		glog.V(100).Info("The network builder apiclient is nil")

		return false, fmt.Errorf("network builder cannot have nil apiClient")
	}

	if builder.errorMsg != "" {
		glog.V(100).Infof("The network builder has error message: %s", builder.errorMsg)

		return false, fmt.Errorf("%s", builder.errorMsg)
	}

	return true, nil
}
