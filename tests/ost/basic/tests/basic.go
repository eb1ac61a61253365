package tests

import (
	. "github.com/onsi/ginkgo/v2"

	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/ost/basic/internal/basicparams"
	. "github.com/ovirt/ost-gotests/tests/ost/internal/ostinittools"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostscenario"
)

var _ = Describe(
	"oVirt basic suite",
	Ordered,
	ContinueOnFailure,
	Label(basicparams.Label), func() {
		env := &ostscenario.Env{
			APIClient: APIClient,
			Config:    OSTConfig,
			Waiter:    Waiter,
			Session:   Session,
			Engine:    Engine,
			Hosts:     Hosts,
		}

		if EventLog != nil {
			env.Events = EventLog
		}

		sequence.Specs(sequence.NewRegistry().MustAdd(ostscenario.Basic(env)...).Cases())
	})
