/*
Plan is a tool to print the execution plan of an oVirt system test suite. Every case is printed with its resolved
order in the sequence the suite runs it, followed by the labels it can be selected with. Orders shared by more than
one case are pointed out at the end.

Upon successful generation of the plan the exit code is 0. If any error occurs it will be logged to stderr and the
exit code will be 1.

Usage:

	plan [flags]

The flags are:

	-h, -help
		Print this help message

	-s, -suite string
		Suite or scenario module to plan: basic, bootstrap, sanity or network-by-label. Uses "basic" if left blank

	-v int
		Log level verbosity for glog. Use 100 for logging all messages or leave blank for none
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/golang/glog"
	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostscenario"
)

var (
	help  bool
	suite string
)

// suites maps a suite name to the cases it runs. Cases are only listed, so an empty environment is enough.
var suites = map[string]func(env *ostscenario.Env) []sequence.Case{
	"basic":                       ostscenario.Basic,
	ostparams.LabelBootstrap:      ostscenario.Bootstrap,
	ostparams.LabelSanity:         ostscenario.Sanity,
	ostparams.LabelNetworkByLabel: ostscenario.NetworkByLabel,
}

//nolint:gochecknoinits // This is a main package so init is fine.
func init() {
	const (
		helpUsage  = "Print this help message"
		suiteUsage = "Suite or scenario module to plan: basic, bootstrap, sanity or network-by-label"

		defaultHelp  = false
		defaultSuite = "basic"

		shorthand = " (shorthand)"
	)

	flag.BoolVar(&help, "help", defaultHelp, helpUsage)
	flag.BoolVar(&help, "h", defaultHelp, helpUsage+shorthand)

	flag.StringVar(&suite, "suite", defaultSuite, suiteUsage)
	flag.StringVar(&suite, "s", defaultSuite, suiteUsage+shorthand)
}

func main() {
	// Also send glog messages to stderr
	_ = flag.Lookup("logtostderr").Value.Set("true")

	flag.Parse()

	if help {
		flag.Usage()

		return
	}

	err := printPlan(os.Stdout, suite)
	if err != nil {
		glog.Errorf("Failed to print the plan of suite %s: %v", suite, err)

		os.Exit(1)
	}
}

// printPlan writes the cases of the named suite in execution order. Case names must be unique within a suite.
func printPlan(writer io.Writer, name string) error {
	if name == "" {
		name = "basic"
	}

	cases, ok := suites[name]
	if !ok {
		known := slices.Sorted(maps.Keys(suites))

		return fmt.Errorf("unknown suite %q, expected one of %s", name, strings.Join(known, ", "))
	}

	registry := sequence.NewRegistry()
	if err := registry.Add(cases(&ostscenario.Env{})...); err != nil {
		return fmt.Errorf("suite %s: %w", name, err)
	}

	planned := registry.Sorted()

	glog.V(ostparams.OstLogLevel).Infof("Planning %d cases of suite %s", len(planned), name)

	for _, testCase := range planned {
		line := testCase.String()
		if len(testCase.Labels) > 0 {
			line += fmt.Sprintf(" {%s}", strings.Join(testCase.Labels, ", "))
		}

		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}
	}

	for _, order := range sequence.DuplicateOrders(planned) {
		if _, err := fmt.Fprintf(writer, "warning: order %d is shared by more than one case\n", order); err != nil {
			return err
		}
	}

	return nil
}
