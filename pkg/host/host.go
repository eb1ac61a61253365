package host

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Builder provides struct for host object containing connection to the engine and the host definition.
type Builder struct {
	// Host definition. Used to add the host to the engine.
	Definition *ovirtsdk4.Host
	// Added host object.
	Object *ovirtsdk4.Host
	// Used in functions that define or mutate the host definition. errorMsg is processed before the host is added.
	errorMsg  string
	apiClient *clients.Settings
}

// NewBuilder creates new instance of Builder for a host reachable at address that joins clusterName.
func NewBuilder(apiClient *clients.Settings, name, address, clusterName string) *Builder {
	glog.V(100).Infof("Initializing new host structure %s at %s for cluster %s", name, address, clusterName)

	builder := Builder{
		apiClient: apiClient,
		Definition: ovirtsdk4.NewHostBuilder().
			Name(name).
			Address(address).
			Cluster(ovirtsdk4.NewClusterBuilder().Name(clusterName).MustBuild()).
			MustBuild(),
	}

	if apiClient == nil {
		builder.errorMsg = "host 'apiClient' cannot be nil"
	}

	if address == "" {
		builder.errorMsg = "host 'address' cannot be empty"
	}

	if name == "" {
		builder.errorMsg = "host 'name' cannot be empty"
	}

	return &builder
}

// Pull loads an existing host into Builder struct.
func Pull(apiClient *clients.Settings, name string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing host name: %s", name)

	if name == "" {
		return nil, fmt.Errorf("host 'name' cannot be empty")
	}

	builder := Builder{
		apiClient:  apiClient,
		Definition: ovirtsdk4.NewHostBuilder().Name(name).MustBuild(),
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("host object %s does not exist", name)
	}

	builder.Definition = builder.Object

	return &builder, nil
}

// List returns builders for every host matching the search query, sorted by name. An empty query lists all.
func List(apiClient *clients.Settings, search string) ([]*Builder, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("host list 'apiClient' cannot be nil")
	}

	glog.V(100).Infof("Listing hosts matching %q", search)

	request := apiClient.SystemService().HostsService().List()
	if search != "" {
		request.Search(search)
	}

	response, err := request.Send()
	if err != nil {
		return nil, err
	}

	hosts, ok := response.Hosts()
	if !ok {
		return nil, nil
	}

	var builders []*Builder

	for _, object := range hosts.Slice() {
		builders = append(builders, &Builder{apiClient: apiClient, Definition: object, Object: object})
	}

	slices.SortFunc(builders, func(left, right *Builder) int {
		return strings.Compare(left.Name(), right.Name())
	})

	return builders, nil
}

// WithRootPassword sets the password the engine uses to deploy the host.
func (builder *Builder) WithRootPassword(password string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetRootPassword(password)

	return builder
}

// WithOverrideIptables lets the engine replace the host firewall configuration.
func (builder *Builder) WithOverrideIptables() *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetOverrideIptables(true)

	return builder
}

// Create adds the host to the engine.
func (builder *Builder) Create() (*Builder, error) {
	if valid, err := builder.validate(); !valid {
		return builder, err
	}

	glog.V(100).Infof("Adding host %s", builder.Definition.MustName())

	if builder.Exists() {
		return builder, nil
	}

	response, err := builder.apiClient.SystemService().HostsService().Add().Host(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustHost()

	return builder, nil
}

// Delete removes the host from the engine.
func (builder *Builder) Delete() error {
	if valid, err := builder.validate(); !valid {
		return err
	}

	if !builder.Exists() {
		return nil
	}

	glog.V(100).Infof("Removing host %s", builder.Definition.MustName())

	if _, err := builder.service().Remove().Send(); err != nil {
		return err
	}

	builder.Object = nil

	return nil
}

// Exists tells whether the host exists and refreshes Object.
func (builder *Builder) Exists() bool {
	if valid, _ := builder.validate(); !valid {
		return false
	}

	name := builder.Definition.MustName()

	glog.V(100).Infof("Checking if host %s exists", name)

	response, err := builder.apiClient.SystemService().HostsService().List().Search("name=" + name).Send()
	if err != nil {
		glog.V(100).Infof("Failed to list hosts: %v", err)

		return false
	}

	hosts, ok := response.Hosts()
	if !ok || len(hosts.Slice()) == 0 {
		return false
	}

	builder.Object = hosts.Slice()[0]

	return true
}

// Name returns the host name.
func (builder *Builder) Name() string {
	if builder == nil || builder.Definition == nil {
		return ""
	}

	name, _ := builder.Definition.Name()

	return name
}

// Address returns the host address as known to the engine.
func (builder *Builder) Address() string {
	if builder == nil || builder.Definition == nil {
		return ""
	}

	address, _ := builder.Definition.Address()

	return address
}

// Status fetches the current host status.
func (builder *Builder) Status() (ovirtsdk4.HostStatus, error) {
	if !builder.Exists() {
		return "", fmt.Errorf("host %s does not exist", builder.Name())
	}

	status, ok := builder.Object.Status()
	if !ok {
		return "", fmt.Errorf("host %s reported no status", builder.Name())
	}

	return status, nil
}

// IsUp tells whether the host is up. A host in an install failure state is reported as an error so pollers can
// stop early.
func (builder *Builder) IsUp() (bool, error) {
	status, err := builder.Status()
	if err != nil {
		return false, err
	}

	glog.V(100).Infof("Host %s status is %s", builder.Name(), status)

	return CheckStatus(builder.Name(), status)
}

// CheckStatus reports whether a host in status is up. Statuses a host does not leave on its own yield a *StatusError.
func CheckStatus(name string, status ovirtsdk4.HostStatus) (bool, error) {
	switch status {
	case ovirtsdk4.HOSTSTATUS_UP:
		return true, nil
	case ovirtsdk4.HOSTSTATUS_INSTALL_FAILED, ovirtsdk4.HOSTSTATUS_NON_OPERATIONAL:
		return false, &StatusError{Host: name, Status: status}
	default:
		return false, nil
	}
}

// IsTerminal reports whether err carries a *StatusError.
func IsTerminal(err error) bool {
	var statusErr *StatusError

	return errors.As(err, &statusErr)
}

// StatusError reports a host that reached a state it will not leave on its own.
type StatusError struct {
	Host   string
	Status ovirtsdk4.HostStatus
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("host %s is %s", e.Host, e.Status)
}

// WaitUntilUp polls until the host is up or timeout elapses.
func (builder *Builder) WaitUntilUp(ctx context.Context, interval, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(context.Context) (bool, error) {
		up, err := builder.IsUp()
		if err != nil {
			if IsTerminal(err) {
				return false, err
			}

			glog.V(100).Infof("Host %s status unavailable: %v", builder.Name(), err)

			return false, nil
		}

		return up, nil
	})
}

// NICs returns the host network interfaces sorted by name.
func (builder *Builder) NICs() ([]*ovirtsdk4.HostNic, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("host %s does not exist", builder.Name())
	}

	response, err := builder.service().NicsService().List().Send()
	if err != nil {
		return nil, err
	}

	nics, ok := response.Nics()
	if !ok {
		return nil, nil
	}

	sorted := slices.Clone(nics.Slice())

	slices.SortFunc(sorted, func(left, right *ovirtsdk4.HostNic) int {
		return strings.Compare(left.MustName(), right.MustName())
	})

	return sorted, nil
}

// LabelNIC puts a network label on the host NIC with the given id.
func (builder *Builder) LabelNIC(nicID, label string) error {
	if !builder.Exists() {
		return fmt.Errorf("host %s does not exist", builder.Name())
	}

	glog.V(100).Infof("Labelling nic %s of host %s with %s", nicID, builder.Name(), label)

	_, err := builder.service().NicsService().NicService(nicID).NetworkLabelsService().Add().
		Label(ovirtsdk4.NewNetworkLabelBuilder().Id(label).MustBuild()).Send()

	return err
}

// HasNetworkAttachment tells whether the network with the given id is attached to any of the host NICs.
func (builder *Builder) HasNetworkAttachment(networkID string) (bool, error) {
	if !builder.Exists() {
		return false, fmt.Errorf("host %s does not exist", builder.Name())
	}

	response, err := builder.service().NetworkAttachmentsService().List().Send()
	if err != nil {
		return false, err
	}

	attachments, ok := response.Attachments()
	if !ok {
		return false, nil
	}

	for _, attachment := range attachments.Slice() {
		network, ok := attachment.Network()
		if !ok {
			continue
		}

		if id, ok := network.Id(); ok && id == networkID {
			return true, nil
		}
	}

	return false, nil
}

// Devices returns the host devices.
func (builder *Builder) Devices() ([]*ovirtsdk4.HostDevice, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("host %s does not exist", builder.Name())
	}

	response, err := builder.service().DevicesService().List().Send()
	if err != nil {
		return nil, err
	}

	devices, ok := response.Devices()
	if !ok {
		return nil, nil
	}

	return devices.Slice(), nil
}

// Hooks returns the VDSM hooks installed on the host.
func (builder *Builder) Hooks() ([]*ovirtsdk4.Hook, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("host %s does not exist", builder.Name())
	}

	response, err := builder.service().HooksService().List().Send()
	if err != nil {
		return nil, err
	}

	hooks, ok := response.Hooks()
	if !ok {
		return nil, nil
	}

	return hooks.Slice(), nil
}

// Statistics returns the host statistics.
func (builder *Builder) Statistics() ([]*ovirtsdk4.Statistic, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("host %s does not exist", builder.Name())
	}

	response, err := builder.service().StatisticsService().List().Send()
	if err != nil {
		return nil, err
	}

	statistics, ok := response.Statistics()
	if !ok {
		return nil, nil
	}

	return statistics.Slice(), nil
}

// NumaNodes returns the NUMA nodes of the host sorted by index.
func (builder *Builder) NumaNodes() ([]*ovirtsdk4.NumaNode, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("host %s does not exist", builder.Name())
	}

	response, err := builder.service().NumaNodesService().List().Send()
	if err != nil {
		return nil, err
	}

	nodes, ok := response.Nodes()
	if !ok {
		return nil, nil
	}

	sorted := slices.Clone(nodes.Slice())
	slices.SortFunc(sorted, func(left, right *ovirtsdk4.NumaNode) int {
		leftIndex, _ := left.Index()
		rightIndex, _ := right.Index()

		return cmp.Compare(leftIndex, rightIndex)
	})

	return sorted, nil
}

// FenceAgents returns the fence agents configured for the host.
func (builder *Builder) FenceAgents() ([]*ovirtsdk4.Agent, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("host %s does not exist", builder.Name())
	}

	response, err := builder.service().FenceAgentsService().List().Send()
	if err != nil {
		return nil, err
	}

	agents, ok := response.Agents()
	if !ok {
		return nil, nil
	}

	return agents.Slice(), nil
}

// UpgradeCheck asks the engine to check the host for available updates.
func (builder *Builder) UpgradeCheck() error {
	if !builder.Exists() {
		return fmt.Errorf("host %s does not exist", builder.Name())
	}

	glog.V(100).Infof("Checking host %s for updates", builder.Name())

	_, err := builder.service().UpgradeCheck().Send()

	return err
}

func (builder *Builder) service() *ovirtsdk4.HostService {
	return builder.apiClient.SystemService().HostsService().HostService(builder.Object.MustId())
}

func (builder *Builder) validate() (bool, error) {
	if builder == nil {
		glog.V(100).Info("The host builder is uninitialized")

		return false, fmt.Errorf("error: received nil host builder")
	}

	if builder.Definition == nil {
		glog.V(100).Info("The host is undefined")

		return false, fmt.Errorf("can not redefine the undefined host")
	}

	if builder.apiClient == nil {
		glog.V(100).Info("The host builder apiclient is nil")

		return false, fmt.Errorf("host builder cannot have nil apiClient")
	}

	if builder.errorMsg != "" {
		glog.V(100).Infof("The host builder has error message: %s", builder.errorMsg)

		return false, fmt.Errorf("%s", builder.errorMsg)
	}

	return true, nil
}
