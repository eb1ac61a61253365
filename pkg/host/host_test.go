package host

import (
	"errors"
	"fmt"
	"testing"

	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"github.com/stretchr/testify/assert"
)

func TestNewBuilderValidation(t *testing.T) {
	testCases := []struct {
		name          string
		address       string
		apiClient     *clients.Settings
		expectedError string
	}{
		{name: "host-0", address: "192.168.200.2", apiClient: &clients.Settings{}},
		{name: "", address: "192.168.200.2", apiClient: &clients.Settings{}, expectedError: "host 'name' cannot be empty"},
		{name: "host-0", address: "", apiClient: &clients.Settings{}, expectedError: "host 'address' cannot be empty"},
		{name: "host-0", address: "192.168.200.2", expectedError: "host 'apiClient' cannot be nil"},
	}

	for _, testCase := range testCases {
		builder := NewBuilder(testCase.apiClient, testCase.name, testCase.address, "test-cluster")
		assert.Equal(t, testCase.expectedError, builder.errorMsg)
	}
}

func TestCheckStatus(t *testing.T) {
	testCases := []struct {
		status      ovirtsdk4.HostStatus
		expectedUp  bool
		expectedErr bool
	}{
		{status: ovirtsdk4.HOSTSTATUS_UP, expectedUp: true},
		{status: ovirtsdk4.HOSTSTATUS_INSTALLING},
		{status: ovirtsdk4.HOSTSTATUS_MAINTENANCE},
		{status: ovirtsdk4.HOSTSTATUS_INSTALL_FAILED, expectedErr: true},
		{status: ovirtsdk4.HOSTSTATUS_NON_OPERATIONAL, expectedErr: true},
	}

	for _, testCase := range testCases {
		up, err := CheckStatus("host-0", testCase.status)

		assert.Equal(t, testCase.expectedUp, up, testCase.status)

		if testCase.expectedErr {
			assert.EqualError(t, err, fmt.Sprintf("host host-0 is %s", testCase.status))
		} else {
			assert.NoError(t, err, testCase.status)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	statusErr := &StatusError{Host: "host-0", Status: ovirtsdk4.HOSTSTATUS_INSTALL_FAILED}

	assert.True(t, IsTerminal(statusErr))
	assert.True(t, IsTerminal(fmt.Errorf("adding host: %w", statusErr)))
	assert.False(t, IsTerminal(errors.New("connection refused")))
	assert.False(t, IsTerminal(nil))
}
