package network

import (
	"fmt"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
)

// ProfileBuilder provides struct for vNIC profile object of a network.
type ProfileBuilder struct {
	// Profile definition. Used to create the profile.
	Definition *ovirtsdk4.VnicProfile
	// Created profile object.
	Object    *ovirtsdk4.VnicProfile
	errorMsg  string
	apiClient *clients.Settings
}

// NewProfileBuilder creates new instance of ProfileBuilder for a vNIC profile on the network with networkID.
func NewProfileBuilder(apiClient *clients.Settings, name, networkID string) *ProfileBuilder {
	glog.V(100).Infof("Initializing new vnic profile %s on network %s", name, networkID)

	builder := ProfileBuilder{
		apiClient: apiClient,
		Definition: ovirtsdk4.NewVnicProfileBuilder().
			Name(name).
			Network(ovirtsdk4.NewNetworkBuilder().Id(networkID).MustBuild()).
			MustBuild(),
	}

	if apiClient == nil {
		builder.errorMsg = "vnic profile 'apiClient' cannot be nil"
	}

	if networkID == "" {
		builder.errorMsg = "vnic profile 'networkID' cannot be empty"
	}

	if name == "" {
		builder.errorMsg = "vnic profile 'name' cannot be empty"
	}

	return &builder
}

// PullProfile loads an existing vNIC profile of a network into ProfileBuilder struct.
func PullProfile(apiClient *clients.Settings, name, networkID string) (*ProfileBuilder, error) {
	builder := NewProfileBuilder(apiClient, name, networkID)
	if builder.errorMsg != "" {
		return nil, fmt.Errorf("%s", builder.errorMsg)
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("vnic profile %s does not exist on network %s", name, networkID)
	}

	return builder, nil
}

// PullProfileByID loads the vNIC profile with id into ProfileBuilder struct.
func PullProfileByID(apiClient *clients.Settings, id string) (*ProfileBuilder, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("vnic profile 'apiClient' cannot be nil")
	}

	if id == "" {
		return nil, fmt.Errorf("vnic profile 'id' cannot be empty")
	}

	glog.V(100).Infof("Pulling existing vnic profile id: %s", id)

	response, err := apiClient.SystemService().VnicProfilesService().ProfileService(id).Get().Send()
	if err != nil {
		return nil, err
	}

	profile := response.MustProfile()

	return &ProfileBuilder{apiClient: apiClient, Definition: profile, Object: profile}, nil
}

// WithPassThrough enables passthrough mode. A passthrough profile cannot have a network filter.
func (builder *ProfileBuilder) WithPassThrough() *ProfileBuilder {
	if builder.errorMsg != "" {
		return builder
	}

	builder.Definition.SetPassThrough(
		ovirtsdk4.NewVnicPassThroughBuilder().Mode(ovirtsdk4.VNICPASSTHROUGHMODE_ENABLED).MustBuild())

	return builder
}

// WithNetworkFilter applies the network filter with filterID to NICs using the profile.
func (builder *ProfileBuilder) WithNetworkFilter(filterID string) *ProfileBuilder {
	if builder.errorMsg != "" {
		return builder
	}

	if filterID == "" {
		builder.errorMsg = "vnic profile 'filterID' cannot be empty"

		return builder
	}

	builder.Definition.SetNetworkFilter(ovirtsdk4.NewNetworkFilterBuilder().Id(filterID).MustBuild())

	return builder
}

// WithDescription sets the profile description.
func (builder *ProfileBuilder) WithDescription(description string) *ProfileBuilder {
	if builder.errorMsg != "" {
		return builder
	}

	builder.Definition.SetDescription(description)

	return builder
}

// Create makes the vNIC profile.
func (builder *ProfileBuilder) Create() (*ProfileBuilder, error) {
	if builder.errorMsg != "" {
		return builder, fmt.Errorf("%s", builder.errorMsg)
	}

	glog.V(100).Infof("Creating vnic profile %s", builder.Definition.MustName())

	if builder.Exists() {
		return builder, nil
	}

	response, err := builder.apiClient.SystemService().VnicProfilesService().Add().
		Profile(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustProfile()

	return builder, nil
}

// Delete removes the vNIC profile.
func (builder *ProfileBuilder) Delete() error {
	if builder.errorMsg != "" {
		return fmt.Errorf("%s", builder.errorMsg)
	}

	if !builder.Exists() {
		return nil
	}

	glog.V(100).Infof("Deleting vnic profile %s", builder.Definition.MustName())

	_, err := builder.apiClient.SystemService().VnicProfilesService().
		ProfileService(builder.Object.MustId()).Remove().Send()
	if err != nil {
		return err
	}

	builder.Object = nil

	return nil
}

// Exists tells whether a profile with the same name exists on the same network and refreshes Object.
func (builder *ProfileBuilder) Exists() bool {
	if builder.errorMsg != "" || builder.apiClient == nil {
		return false
	}

	response, err := builder.apiClient.SystemService().VnicProfilesService().List().Send()
	if err != nil {
		glog.V(100).Infof("Failed to list vnic profiles: %v", err)

		return false
	}

	profiles, ok := response.Profiles()
	if !ok {
		return false
	}

	networkID := builder.Definition.MustNetwork().MustId()

	for _, profile := range profiles.Slice() {
		name, _ := profile.Name()
		network, ok := profile.Network()

		if !ok || name != builder.Definition.MustName() {
			continue
		}

		if id, _ := network.Id(); id == networkID {
			builder.Object = profile

			return true
		}
	}

	return false
}

// ID returns the id of the created profile or an empty string.
func (builder *ProfileBuilder) ID() string {
	if builder == nil || builder.Object == nil {
		return ""
	}

	id, _ := builder.Object.Id()

	return id
}

// NetworkID returns the id of the network the profile belongs to.
func (builder *ProfileBuilder) NetworkID() string {
	if builder == nil || builder.Definition == nil {
		return ""
	}

	network, ok := builder.Definition.Network()
	if !ok {
		return ""
	}

	id, _ := network.Id()

	return id
}
