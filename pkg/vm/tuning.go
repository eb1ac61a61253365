package vm

import (
	"fmt"

	ovirtsdk4 "github.com/ovirt/go-ovirt"
)

// WithDescription sets the VM description.
func (builder *Builder) WithDescription(description string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetDescription(description)

	return builder
}

// WithCPU sets the CPU topology and mode. pinning[i] is the host CPU set vCPU i is pinned to.
func (builder *Builder) WithCPU(
	sockets, cores, threads int64, mode ovirtsdk4.CpuMode, pinning ...string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	if sockets <= 0 || cores <= 0 || threads <= 0 {
		builder.errorMsg = "vm cpu topology must be positive"

		return builder
	}

	if int64(len(pinning)) > sockets*cores*threads {
		builder.errorMsg = fmt.Sprintf("vm has %d vcpus but %d pins", sockets*cores*threads, len(pinning))

		return builder
	}

	cpu := ovirtsdk4.NewCpuBuilder().
		Topology(ovirtsdk4.NewCpuTopologyBuilder().Sockets(sockets).Cores(cores).Threads(threads).MustBuild()).
		Mode(mode)

	if len(pinning) > 0 {
		pins := make([]*ovirtsdk4.VcpuPin, 0, len(pinning))
		for vcpu, cpuSet := range pinning {
			pins = append(pins, ovirtsdk4.NewVcpuPinBuilder().Vcpu(int64(vcpu)).CpuSet(cpuSet).MustBuild())
		}

		cpu.CpuTune(ovirtsdk4.NewCpuTuneBuilder().VcpuPinsOfAny(pins...).MustBuild())
	}

	builder.Definition.SetCpu(cpu.MustBuild())

	return builder
}

// WithGuaranteedMemory sets the memory, makes all of it guaranteed and disables ballooning.
func (builder *Builder) WithGuaranteedMemory(bytes int64) *Builder {
	builder.WithMemory(bytes)

	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetMemoryPolicy(ovirtsdk4.NewMemoryPolicyBuilder().
		Ballooning(false).
		Guaranteed(bytes).
		Max(bytes).
		MustBuild())

	return builder
}

// WithHighAvailability makes the VM highly available with the given restart priority.
func (builder *Builder) WithHighAvailability(priority int64) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetHighAvailability(
		ovirtsdk4.NewHighAvailabilityBuilder().Enabled(true).Priority(priority).MustBuild())

	return builder
}

// WithPinnedHosts restricts the VM to the named hosts.
func (builder *Builder) WithPinnedHosts(hostNames ...string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	if len(hostNames) == 0 {
		builder.errorMsg = "vm cannot be pinned to no hosts"

		return builder
	}

	hosts := make([]*ovirtsdk4.Host, 0, len(hostNames))
	for _, name := range hostNames {
		hosts = append(hosts, ovirtsdk4.NewHostBuilder().Name(name).MustBuild())
	}

	builder.Definition.SetPlacementPolicy(ovirtsdk4.NewVmPlacementPolicyBuilder().
		Affinity(ovirtsdk4.VMAFFINITY_PINNED).
		HostsOfAny(hosts...).
		MustBuild())

	return builder
}

// WithoutPeripherals disables USB, sound and the SPICE conveniences a high performance VM does not need. It also
// uses a single IO thread, an urandom RNG device, interleaved NUMA memory and writethrough disk cache on the
// given emulated machine.
func (builder *Builder) WithoutPeripherals(emulatedMachine string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetUsb(ovirtsdk4.NewUsbBuilder().Enabled(false).Type(ovirtsdk4.USBTYPE_NATIVE).MustBuild())
	builder.Definition.SetSoundcardEnabled(false)
	builder.Definition.SetDisplay(ovirtsdk4.NewDisplayBuilder().
		SmartcardEnabled(false).
		FileTransferEnabled(false).
		CopyPasteEnabled(false).
		Type(ovirtsdk4.DISPLAYTYPE_SPICE).
		MustBuild())
	builder.Definition.SetIo(ovirtsdk4.NewIoBuilder().Threads(1).MustBuild())
	builder.Definition.SetRngDevice(ovirtsdk4.NewRngDeviceBuilder().Source(ovirtsdk4.RNGSOURCE_URANDOM).MustBuild())
	builder.Definition.SetNumaTuneMode(ovirtsdk4.NUMATUNEMODE_INTERLEAVE)

	properties := new(ovirtsdk4.CustomPropertySlice)
	properties.SetSlice([]*ovirtsdk4.CustomProperty{
		ovirtsdk4.NewCustomPropertyBuilder().Name("viodiskcache").Value("writethrough").MustBuild(),
	})
	builder.Definition.SetCustomProperties(properties)

	if emulatedMachine != "" {
		builder.Definition.SetCustomEmulatedMachine(emulatedMachine)
	}

	return builder
}
