package vm

import (
	"fmt"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
)

// GraphicsConsoles returns the graphics consoles of the VM.
func (builder *Builder) GraphicsConsoles() ([]*ovirtsdk4.GraphicsConsole, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	response, err := builder.service().GraphicsConsolesService().List().Send()
	if err != nil {
		return nil, err
	}

	consoles, ok := response.Consoles()
	if !ok {
		return nil, nil
	}

	return consoles.Slice(), nil
}

// AddGraphicsConsole adds a graphics console speaking protocol.
func (builder *Builder) AddGraphicsConsole(protocol ovirtsdk4.GraphicsType) error {
	if !builder.Exists() {
		return fmt.Errorf("cannot add console to non-existent vm %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding %s console to vm %s", protocol, builder.Definition.MustName())

	_, err := builder.service().GraphicsConsolesService().Add().
		Console(ovirtsdk4.NewGraphicsConsoleBuilder().Protocol(protocol).MustBuild()).
		Send()

	return err
}

// RemoveGraphicsConsole removes the graphics console with consoleID.
func (builder *Builder) RemoveGraphicsConsole(consoleID string) error {
	if !builder.Exists() {
		return fmt.Errorf("cannot remove console of non-existent vm %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Removing console %s of vm %s", consoleID, builder.Definition.MustName())

	_, err := builder.service().GraphicsConsolesService().ConsoleService(consoleID).Remove().Send()

	return err
}

// SerialConsoleEnabled tells whether the serial console of the VM is enabled. The console is only reported when all
// the VM content is requested.
func (builder *Builder) SerialConsoleEnabled() (bool, error) {
	if valid, err := builder.validate(); !valid {
		return false, err
	}

	name := builder.Definition.MustName()

	response, err := builder.apiClient.SystemService().VmsService().List().Search("name=" + name).AllContent(true).Send()
	if err != nil {
		return false, err
	}

	vms, ok := response.Vms()
	if !ok || len(vms.Slice()) == 0 {
		return false, fmt.Errorf("vm %s does not exist", name)
	}

	console, ok := vms.Slice()[0].Console()
	if !ok {
		return false, nil
	}

	enabled, _ := console.Enabled()

	return enabled, nil
}

// EnableSerialConsole turns the serial console of the VM on.
func (builder *Builder) EnableSerialConsole() error {
	if !builder.Exists() {
		return fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	glog.V(100).Infof("Enabling serial console of vm %s", builder.Definition.MustName())

	_, err := builder.service().Update().
		Vm(ovirtsdk4.NewVmBuilder().Console(ovirtsdk4.NewConsoleBuilder().Enabled(true).MustBuild()).MustBuild()).
		Send()

	return err
}

// SetLease makes the VM highly available with its lease on the storage domain with storageDomainID.
func (builder *Builder) SetLease(storageDomainID string) error {
	if storageDomainID == "" {
		return fmt.Errorf("vm lease 'storageDomainID' cannot be empty")
	}

	if !builder.Exists() {
		return fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	glog.V(100).Infof("Setting lease of vm %s on storage domain %s", builder.Definition.MustName(), storageDomainID)

	update := ovirtsdk4.NewVmBuilder().
		HighAvailability(ovirtsdk4.NewHighAvailabilityBuilder().Enabled(true).MustBuild()).
		Lease(ovirtsdk4.NewStorageDomainLeaseBuilder().
			StorageDomain(ovirtsdk4.NewStorageDomainBuilder().Id(storageDomainID).MustBuild()).
			MustBuild()).
		MustBuild()

	_, err := builder.service().Update().Vm(update).Send()

	return err
}

// LeaseStorageDomainID returns the id of the storage domain holding the VM lease, or an empty string.
func (builder *Builder) LeaseStorageDomainID() (string, error) {
	if !builder.Exists() {
		return "", fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	lease, ok := builder.Object.Lease()
	if !ok {
		return "", nil
	}

	domain, ok := lease.StorageDomain()
	if !ok {
		return "", nil
	}

	id, _ := domain.Id()

	return id, nil
}

// SetNICProfile connects the NIC with nicID through the vNIC profile with profileID.
func (builder *Builder) SetNICProfile(nicID, profileID string) error {
	if !builder.Exists() {
		return fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	glog.V(100).Infof("Setting profile %s on nic %s of vm %s", profileID, nicID, builder.Definition.MustName())

	nic := ovirtsdk4.NewNicBuilder().VnicProfile(ovirtsdk4.NewVnicProfileBuilder().Id(profileID).MustBuild()).MustBuild()

	_, err := builder.service().NicsService().NicService(nicID).Update().Nic(nic).Send()

	return err
}

// AddNICFilterParameter adds a network filter parameter to the NIC with nicID.
func (builder *Builder) AddNICFilterParameter(nicID, name, value string) error {
	if name == "" || value == "" {
		return fmt.Errorf("filter parameter 'name' and 'value' cannot be empty")
	}

	if !builder.Exists() {
		return fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding filter parameter %s=%s to nic %s of vm %s", name, value, nicID,
		builder.Definition.MustName())

	_, err := builder.service().NicsService().NicService(nicID).NetworkFilterParametersService().Add().
		Parameter(ovirtsdk4.NewNetworkFilterParameterBuilder().Name(name).Value(value).MustBuild()).
		Send()

	return err
}
