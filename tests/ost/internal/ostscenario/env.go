// Package ostscenario defines the ordered cases of the oVirt basic suite. Cases are plain values so tooling can
// list them without an engine; they only touch the engine when run.
package ostscenario

import (
	"context"
	"fmt"
	"slices"

	"github.com/onsi/ginkgo/v2"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"github.com/ovirt/ost-gotests/pkg/host"
	"github.com/ovirt/ost-gotests/tests/internal/await"
	"github.com/ovirt/ost-gotests/tests/internal/remote"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/internal/testevent"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostconfig"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
)

// EventLog is the engine audit log as cases read and write it.
type EventLog interface {
	testevent.Source
	Add(ctx context.Context, origin string, customID int64, description string) error
}

// Env is everything a case needs to reach the platform.
type Env struct {
	APIClient *clients.Settings
	Config    *ostconfig.OSTConfig
	Waiter    *await.Waiter
	Events    EventLog
	Session   *sequence.Session
	Engine    *remote.Host
	Hosts     []*remote.Host
}

// Basic returns the cases of the basic suite: bootstrap, sanity and network by label, each shifted into its own
// order block.
func Basic(env *Env) []sequence.Case {
	return slices.Concat(
		sequence.Labeled([]string{ostparams.LabelBootstrap},
			sequence.Shift(ostparams.BootstrapOffset, Bootstrap(env)...)...),
		sequence.Labeled([]string{ostparams.LabelSanity},
			sequence.Shift(ostparams.SanityOffset, Sanity(env)...)...),
		sequence.Labeled([]string{ostparams.LabelNetworkByLabel},
			sequence.Shift(ostparams.NetworkByLabelOffset, NetworkByLabel(env)...)...),
	)
}

// step logs a step of the running case.
func step(text string) {
	ginkgo.By(text)
}

func (env *Env) checkEngine() error {
	if env == nil || env.APIClient == nil {
		return fmt.Errorf("engine connection is not available")
	}

	return nil
}

func (env *Env) checkEngineMachine() error {
	if env.Engine == nil {
		return fmt.Errorf("ssh access to the engine machine is not configured")
	}

	return nil
}

// engineCase returns an ordered case that fails early when the engine is unreachable.
func (env *Env) engineCase(name string, order int, run sequence.Func) sequence.Case {
	return sequence.New(name, order, func(ctx context.Context) error {
		if err := env.checkEngine(); err != nil {
			return err
		}

		return run(ctx)
	})
}

// expectEvents runs action and then waits for the engine to log every code.
func (env *Env) expectEvents(ctx context.Context, action func(ctx context.Context) error, codes ...int64) error {
	if env.Events == nil {
		return fmt.Errorf("engine event log is not available")
	}

	return testevent.Within(ctx, env.Events, codes, action, testevent.WithWaiter(env.Waiter))
}

// hostsInDataCenter lists the engine hosts of the test data center sorted by name.
func (env *Env) hostsInDataCenter() ([]*host.Builder, error) {
	return host.List(env.APIClient, "datacenter="+env.Config.DataCenterName)
}

// hostsInCluster lists the engine hosts of the test cluster sorted by name.
func (env *Env) hostsInCluster() ([]*host.Builder, error) {
	return host.List(env.APIClient, "cluster="+env.Config.ClusterName)
}

// hostStatuses renders host statuses for error messages.
func hostStatuses(hosts []*host.Builder) string {
	var statuses []string

	for _, hostBuilder := range hosts {
		status, _ := hostBuilder.Definition.Status()
		statuses = append(statuses, fmt.Sprintf("%s: %s", hostBuilder.Name(), status))
	}

	return fmt.Sprint(statuses)
}
