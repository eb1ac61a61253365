package vm

import (
	"testing"

	"github.com/google/uuid"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"github.com/stretchr/testify/assert"
)

func TestNewBuilderUsesBlankTemplate(t *testing.T) {
	builder := NewBuilder(&clients.Settings{}, "vm0", "test-cluster")
	assert.Empty(t, builder.errorMsg)
	assert.Equal(t, BlankTemplate, builder.Definition.MustTemplate().MustName())
	assert.Equal(t, "test-cluster", builder.Definition.MustCluster().MustName())

	builder.WithTemplate("cirros")
	assert.Equal(t, "cirros", builder.Definition.MustTemplate().MustName())
}

func TestBuilderErrorsAreDeferred(t *testing.T) {
	builder := NewBuilder(&clients.Settings{}, "vm0", "test-cluster").WithMemory(0).WithTemplate("other")
	assert.Equal(t, "vm memory must be positive", builder.errorMsg)
	assert.Equal(t, BlankTemplate, builder.Definition.MustTemplate().MustName())

	_, err := builder.Create()
	assert.EqualError(t, err, "vm memory must be positive")
	assert.False(t, builder.Exists())
}

func TestNilClient(t *testing.T) {
	builder := NewBuilder(nil, "vm0", "test-cluster")
	assert.Equal(t, "vm 'apiClient' cannot be nil", builder.errorMsg)
	assert.EqualError(t, builder.Delete(), "vm builder cannot have nil apiClient")

	_, err := Pull(nil, "")
	assert.EqualError(t, err, "vm 'name' cannot be empty")
}

func TestAddDiskValidation(t *testing.T) {
	builder := NewBuilder(&clients.Settings{}, "vm0", "test-cluster")

	_, err := builder.AddDisk(DiskSpec{SizeBytes: 1, StorageDomainName: "nfs"})
	assert.EqualError(t, err, "disk 'Name' and 'StorageDomainName' cannot be empty")

	_, err = builder.AddDisk(DiskSpec{Name: "vm0_disk0", StorageDomainName: "nfs"})
	assert.EqualError(t, err, "disk vm0_disk0 size must be positive")
}

func TestCorrelationID(t *testing.T) {
	first := CorrelationID()
	second := CorrelationID()

	assert.NotEqual(t, first, second)

	_, err := uuid.Parse(first)
	assert.NoError(t, err)
}

func TestWithCPU(t *testing.T) {
	testCases := []struct {
		sockets       int64
		pinning       []string
		expectedError string
	}{
		{sockets: 1, pinning: []string{"0", "1"}},
		{sockets: 0, expectedError: "vm cpu topology must be positive"},
		{sockets: 1, pinning: []string{"0", "1", "2"}, expectedError: "vm has 2 vcpus but 3 pins"},
	}

	for _, testCase := range testCases {
		builder := NewBuilder(&clients.Settings{}, "vm2", "test-cluster").
			WithCPU(testCase.sockets, 2, 1, ovirtsdk4.CPUMODE_HOST_PASSTHROUGH, testCase.pinning...)
		assert.Equal(t, testCase.expectedError, builder.errorMsg)

		if testCase.expectedError != "" {
			continue
		}

		pins := builder.Definition.MustCpu().MustCpuTune().MustVcpuPins().Slice()
		assert.Len(t, pins, len(testCase.pinning))
		assert.Equal(t, "1", pins[1].MustCpuSet())
	}
}

func TestWithGuaranteedMemory(t *testing.T) {
	builder := NewBuilder(&clients.Settings{}, "vm2", "test-cluster").WithGuaranteedMemory(1024)
	assert.Empty(t, builder.errorMsg)
	assert.Equal(t, int64(1024), builder.Definition.MustMemoryPolicy().MustGuaranteed())
	assert.False(t, builder.Definition.MustMemoryPolicy().MustBallooning())

	builder = NewBuilder(&clients.Settings{}, "vm2", "test-cluster").WithGuaranteedMemory(0)
	assert.Equal(t, "vm memory must be positive", builder.errorMsg)
}

func TestWithPinnedHosts(t *testing.T) {
	builder := NewBuilder(&clients.Settings{}, "vm2", "test-cluster").WithPinnedHosts()
	assert.Equal(t, "vm cannot be pinned to no hosts", builder.errorMsg)

	builder = NewBuilder(&clients.Settings{}, "vm2", "test-cluster").WithPinnedHosts("host-0")
	assert.Empty(t, builder.errorMsg)
	assert.Equal(t, ovirtsdk4.VMAFFINITY_PINNED, builder.Definition.MustPlacementPolicy().MustAffinity())
	assert.Len(t, builder.Definition.MustPlacementPolicy().MustHosts().Slice(), 1)
}
