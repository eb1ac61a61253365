package ostinittools

import (
	"github.com/golang/glog"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"github.com/ovirt/ost-gotests/pkg/events"
	"github.com/ovirt/ost-gotests/tests/internal/await"
	"github.com/ovirt/ost-gotests/tests/internal/inittools"
	"github.com/ovirt/ost-gotests/tests/internal/remote"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostconfig"
)

var (
	// APIClient provides API access to the engine.
	APIClient *clients.Settings
	// OSTConfig provides access to the suite configuration parameters.
	OSTConfig *ostconfig.OSTConfig
	// Waiter carries the poll interval and the short and long timeout classes.
	Waiter *await.Waiter
	// EventLog reads the engine audit log.
	EventLog *events.Log
	// Session holds the flags shared by the cases of one run.
	Session = sequence.NewSession()
	// Engine runs commands on the engine machine.
	Engine *remote.Host
	// Hosts run commands on the hypervisors, in configuration order.
	Hosts []*remote.Host
)

// init loads all variables automatically when this package is imported. Once package is imported a user has full
// access to all vars within init function. It is recommended to import this package using dot import.
func init() {
	OSTConfig = ostconfig.NewOSTConfig()
	APIClient = inittools.APIClient
	Waiter = inittools.Waiter

	if APIClient != nil {
		EventLog, _ = events.NewLog(APIClient)
	}

	if OSTConfig == nil || OSTConfig.GeneralConfig == nil {
		return
	}

	var err error

	Engine, err = newHost(OSTConfig.EngineFQDN)
	if err != nil {
		glog.V(100).Infof("Engine ssh access is not configured: %v", err)
	}

	for _, name := range OSTConfig.HostNames {
		host, err := newHost(name)
		if err != nil {
			glog.V(100).Infof("Host %s ssh access is not configured: %v", name, err)

			continue
		}

		Hosts = append(Hosts, host)
	}
}

func newHost(name string) (*remote.Host, error) {
	return remote.NewHost(name, OSTConfig.SSHPort, OSTConfig.SSHUser, OSTConfig.SSHPassword, OSTConfig.SSHKeyPath)
}
