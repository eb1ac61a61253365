package cluster

import (
	"fmt"
	"slices"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
)

// Builder provides struct for cluster object containing connection to the engine and the cluster definition.
type Builder struct {
	// Cluster definition. Used to create the cluster object.
	Definition *ovirtsdk4.Cluster
	// Created cluster object.
	Object *ovirtsdk4.Cluster
	// Used in functions that define or mutate the cluster definition. errorMsg is processed before the cluster
	// object is created.
	errorMsg  string
	apiClient *clients.Settings
}

// NewBuilder creates new instance of Builder for a cluster in the given data center.
func NewBuilder(apiClient *clients.Settings, name, dataCenterName string) *Builder {
	glog.V(100).Infof("Initializing new cluster structure with name %s in data center %s", name, dataCenterName)

	builder := Builder{
		apiClient: apiClient,
		Definition: ovirtsdk4.NewClusterBuilder().
			Name(name).
			DataCenter(ovirtsdk4.NewDataCenterBuilder().Name(dataCenterName).MustBuild()).
			MustBuild(),
	}

	if apiClient == nil {
		builder.errorMsg = "cluster 'apiClient' cannot be nil"
	}

	if name == "" {
		builder.errorMsg = "cluster 'name' cannot be empty"
	}

	return &builder
}

// Pull loads an existing cluster into Builder struct.
func Pull(apiClient *clients.Settings, name string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing cluster name: %s", name)

	builder := Builder{
		apiClient:  apiClient,
		Definition: ovirtsdk4.NewClusterBuilder().Name(name).MustBuild(),
	}

	if name == "" {
		return nil, fmt.Errorf("cluster 'name' cannot be empty")
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("cluster object %s does not exist", name)
	}

	builder.Definition = builder.Object

	return &builder, nil
}

// WithDescription sets the cluster description.
func (builder *Builder) WithDescription(description string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetDescription(description)

	return builder
}

// WithVersion sets the cluster compatibility version.
func (builder *Builder) WithVersion(major, minor int64) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetVersion(ovirtsdk4.NewVersionBuilder().Major(major).Minor(minor).MustBuild())

	return builder
}

// WithCPU sets the cluster CPU type and architecture.
func (builder *Builder) WithCPU(cpuType string, architecture ovirtsdk4.Architecture) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	cpu := ovirtsdk4.NewCpuBuilder().Architecture(architecture)
	if cpuType != "" {
		cpu.Type(cpuType)
	}

	builder.Definition.SetCpu(cpu.MustBuild())

	return builder
}

// WithMemoryPolicy enables ballooning and KSM and sets the memory overcommit percent.
func (builder *Builder) WithMemoryPolicy(overcommitPercent int64, ksmMergeAcrossNodes bool) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	if overcommitPercent < 100 {
		builder.errorMsg = fmt.Sprintf("cluster memory overcommit %d is below 100 percent", overcommitPercent)

		return builder
	}

	builder.Definition.SetBallooningEnabled(true)
	builder.Definition.SetKsm(ovirtsdk4.NewKsmBuilder().Enabled(true).MergeAcrossNodes(ksmMergeAcrossNodes).MustBuild())
	builder.Definition.SetMemoryPolicy(ovirtsdk4.NewMemoryPolicyBuilder().
		OverCommit(ovirtsdk4.NewMemoryOverCommitBuilder().Percent(overcommitPercent).MustBuild()).
		MustBuild())

	return builder
}

// WithSchedulingPolicy sets the named scheduling policy.
func (builder *Builder) WithSchedulingPolicy(policyName string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetSchedulingPolicy(ovirtsdk4.NewSchedulingPolicyBuilder().Name(policyName).MustBuild())

	return builder
}

// WithHAReservation turns on high availability reservation.
func (builder *Builder) WithHAReservation() *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetHaReservation(true)

	return builder
}

// WithMacPool assigns a MAC address pool by id.
func (builder *Builder) WithMacPool(macPoolID string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetMacPool(ovirtsdk4.NewMacPoolBuilder().Id(macPoolID).MustBuild())

	return builder
}

// Create makes a cluster according to the definition and stores the created object in the builder.
func (builder *Builder) Create() (*Builder, error) {
	if valid, err := builder.validate(); !valid {
		return builder, err
	}

	glog.V(100).Infof("Creating cluster %s", builder.Definition.MustName())

	if builder.Exists() {
		return builder, nil
	}

	response, err := builder.apiClient.SystemService().ClustersService().Add().Cluster(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustCluster()

	return builder, nil
}

// Update pushes the definition to the existing cluster.
func (builder *Builder) Update() (*Builder, error) {
	if valid, err := builder.validate(); !valid {
		return builder, err
	}

	if !builder.Exists() {
		return builder, fmt.Errorf("cannot update non-existent cluster %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Updating cluster %s", builder.Definition.MustName())

	response, err := builder.service().Update().Cluster(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustCluster()

	return builder, nil
}

// Delete removes the cluster.
func (builder *Builder) Delete() error {
	if valid, err := builder.validate(); !valid {
		return err
	}

	if !builder.Exists() {
		return nil
	}

	glog.V(100).Infof("Deleting cluster %s", builder.Definition.MustName())

	if _, err := builder.service().Remove().Send(); err != nil {
		return err
	}

	builder.Object = nil

	return nil
}

// Exists tells whether the cluster exists and refreshes Object.
func (builder *Builder) Exists() bool {
	if valid, _ := builder.validate(); !valid {
		return false
	}

	name := builder.Definition.MustName()

	glog.V(100).Infof("Checking if cluster %s exists", name)

	response, err := builder.apiClient.SystemService().ClustersService().List().Search("name=" + name).Send()
	if err != nil {
		glog.V(100).Infof("Failed to list clusters: %v", err)

		return false
	}

	clusters, ok := response.Clusters()
	if !ok || len(clusters.Slice()) == 0 {
		return false
	}

	builder.Object = clusters.Slice()[0]

	return true
}

// AttachNetwork assigns an existing network to the cluster.
func (builder *Builder) AttachNetwork(networkID string, required bool) error {
	if !builder.Exists() {
		return fmt.Errorf("cannot attach network to non-existent cluster %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Attaching network %s to cluster %s", networkID, builder.Definition.MustName())

	network, err := ovirtsdk4.NewNetworkBuilder().Id(networkID).Required(required).Build()
	if err != nil {
		return err
	}

	_, err = builder.service().NetworksService().Add().Network(network).Send()

	return err
}

// HasNetwork tells whether the network is assigned to the cluster.
func (builder *Builder) HasNetwork(networkName string) (bool, error) {
	if !builder.Exists() {
		return false, fmt.Errorf("cluster %s does not exist", builder.Definition.MustName())
	}

	response, err := builder.service().NetworksService().List().Send()
	if err != nil {
		return false, err
	}

	networks, ok := response.Networks()
	if !ok {
		return false, nil
	}

	for _, network := range networks.Slice() {
		if name, ok := network.Name(); ok && name == networkName {
			return true, nil
		}
	}

	return false, nil
}

// AddAffinityGroup adds a VM affinity group to the cluster.
func (builder *Builder) AddAffinityGroup(name string, positive, enforcing bool) (*ovirtsdk4.AffinityGroup, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("cannot add affinity group to non-existent cluster %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding affinity group %s to cluster %s", name, builder.Definition.MustName())

	group, err := ovirtsdk4.NewAffinityGroupBuilder().Name(name).Positive(positive).Enforcing(enforcing).Build()
	if err != nil {
		return nil, err
	}

	response, err := builder.service().AffinityGroupsService().Add().Group(group).Send()
	if err != nil {
		return nil, err
	}

	return response.MustGroup(), nil
}

// AddCPUProfile adds a CPU profile bound to a QoS entry.
func (builder *Builder) AddCPUProfile(name, description, qosID string) (*ovirtsdk4.CpuProfile, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("cannot add cpu profile to non-existent cluster %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding cpu profile %s to cluster %s", name, builder.Definition.MustName())

	profile := ovirtsdk4.NewCpuProfileBuilder().Name(name).Description(description)
	if qosID != "" {
		profile.Qos(ovirtsdk4.NewQosBuilder().Id(qosID).MustBuild())
	}

	response, err := builder.service().CpuProfilesService().Add().Profile(profile.MustBuild()).Send()
	if err != nil {
		return nil, err
	}

	return response.MustProfile(), nil
}

// EnabledFeatures returns the names of the additional features enabled on the cluster.
func (builder *Builder) EnabledFeatures() ([]string, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("cluster %s does not exist", builder.Definition.MustName())
	}

	response, err := builder.service().EnabledFeaturesService().List().Send()
	if err != nil {
		return nil, err
	}

	features, ok := response.Features()
	if !ok {
		return nil, nil
	}

	var names []string

	for _, feature := range features.Slice() {
		if name, ok := feature.Name(); ok {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return names, nil
}

func (builder *Builder) service() *ovirtsdk4.ClusterService {
	return builder.apiClient.SystemService().ClustersService().ClusterService(builder.Object.MustId())
}

func (builder *Builder) validate() (bool, error) {
	if builder == nil {
		glog.V(100).Info("The cluster builder is uninitialized")

		return false, fmt.Errorf("error: received nil cluster builder")
	}

	if builder.Definition == nil {
		glog.V(100).Info("The cluster is undefined")

		return false, fmt.Errorf("can not redefine the undefined cluster")
	}

	if builder.apiClient == nil {
		glog.V(100).Info("The cluster builder apiclient is nil")

		return false, fmt.Errorf("cluster builder cannot have nil apiClient")
	}

	if builder.errorMsg != "" {
		glog.V(100).Infof("The cluster builder has error message: %s", builder.errorMsg)

		return false, fmt.Errorf("%s", builder.errorMsg)
	}

	return true, nil
}
