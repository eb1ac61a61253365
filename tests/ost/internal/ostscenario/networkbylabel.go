package ostscenario

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/ovirt/ost-gotests/pkg/cluster"
	"github.com/ovirt/ost-gotests/pkg/host"
	"github.com/ovirt/ost-gotests/pkg/network"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/internal/vector"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
)

// NetworkByLabel returns the cases that attach a network to hosts through a shared NIC label.
func NetworkByLabel(env *Env) []sequence.Case {
	return []sequence.Case{
		env.engineCase("assign hosts network label", 0, env.assignHostsNetworkLabel),
		env.engineCase("add labeled network", 1, env.addLabeledNetwork),
		env.engineCase("assign labeled network", 2, env.assignLabeledNetwork),
	}
}

// assignHostsNetworkLabel labels the first NIC, by name, of every cluster host. Hosts are labelled concurrently.
func (env *Env) assignHostsNetworkLabel(ctx context.Context) error {
	hosts, err := env.hostsInCluster()
	if err != nil {
		return err
	}

	if len(hosts) == 0 {
		return fmt.Errorf("cluster %s has no hosts", env.Config.ClusterName)
	}

	labelled, err := labelHosts(ctx, hosts, labelFirstNIC)
	if err != nil {
		return err
	}

	glog.V(100).Infof("Labelled nics %v with %s", labelled, ostparams.NetworkLabel)

	return nil
}

// labelHosts runs label on every host concurrently and returns the labelled nics in host order.
func labelHosts(
	ctx context.Context, hosts []*host.Builder, label func(*host.Builder) (string, error)) ([]string, error) {
	return vector.Map(ctx, hosts, func(_ context.Context, hostBuilder *host.Builder) (string, error) {
		return label(hostBuilder)
	})
}

// labelFirstNIC returns the labelled nic as host/nic.
func labelFirstNIC(hostBuilder *host.Builder) (string, error) {
	nics, err := hostBuilder.NICs()
	if err != nil {
		return "", err
	}

	if len(nics) == 0 {
		return "", fmt.Errorf("host %s has no nics", hostBuilder.Name())
	}

	step(fmt.Sprintf("Labelling nic %s of %s", nics[0].MustName(), hostBuilder.Name()))

	if err := hostBuilder.LabelNIC(nics[0].MustId(), ostparams.NetworkLabel); err != nil {
		return "", err
	}

	return hostBuilder.Name() + "/" + nics[0].MustName(), nil
}

func (env *Env) addLabeledNetwork(context.Context) error {
	// Only one non-VLAN network can sit on a NIC and ovirtmgmt already does, so this one needs a VLAN.
	labeled, err := network.NewBuilder(env.APIClient, ostparams.LabeledNetwork, env.Config.DataCenterName).
		WithDescription(fmt.Sprintf("Labeled network on VLAN %d", ostparams.LabeledNetworkVlanID)).
		WithVlan(ostparams.LabeledNetworkVlanID).
		WithUsages().
		Create()
	if err != nil {
		return err
	}

	if err := labeled.AddLabel(ostparams.NetworkLabel); err != nil {
		return err
	}

	labels, err := labeled.Labels()
	if err != nil {
		return err
	}

	matching := 0

	for _, label := range labels {
		if label == ostparams.NetworkLabel {
			matching++
		}
	}

	if matching != 1 {
		return fmt.Errorf("network %s carries label %s %d times", ostparams.LabeledNetwork, ostparams.NetworkLabel,
			matching)
	}

	return nil
}

// assignLabeledNetwork adds the labeled network to the cluster. The engine then attaches it to every labelled host
// NIC asynchronously.
func (env *Env) assignLabeledNetwork(ctx context.Context) error {
	labeled, err := network.Pull(env.APIClient, ostparams.LabeledNetwork, env.Config.DataCenterName)
	if err != nil {
		return err
	}

	testCluster, err := cluster.Pull(env.APIClient, env.Config.ClusterName)
	if err != nil {
		return err
	}

	if err := testCluster.AttachNetwork(labeled.ID(), false); err != nil {
		return err
	}

	hosts, err := env.hostsInCluster()
	if err != nil {
		return err
	}

	for _, hostBuilder := range hosts {
		step(fmt.Sprintf("Waiting for %s to be attached to %s", hostBuilder.Name(), ostparams.LabeledNetwork))

		err := env.Waiter.TrueWithinShort(ctx, func(context.Context) (bool, error) {
			return hostBuilder.HasNetworkAttachment(labeled.ID())
		})
		if err != nil {
			return fmt.Errorf("host %s was not attached to %s: %w", hostBuilder.Name(), ostparams.LabeledNetwork, err)
		}
	}

	return nil
}
