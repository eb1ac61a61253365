package ostparams

import "github.com/ovirt/ost-gotests/tests/internal/params"

var (
	// Labels represents the range of labels that can be used for test cases selection.
	Labels = []string{params.Label, Label}

	// RolePermits are the permit ids of the custom role: create_vm and login.
	RolePermits = []string{"1", "1300"}

	// HostSetupCommands run on every host once all hosts are up.
	HostSetupCommands = [][]string{
		{"rm", "-rf", "/var/cache/yum/*", "/var/cache/dnf/*"},
		{"vdsm-client", "Host", "setLogLevel", "level=DEBUG"},
	}
)
