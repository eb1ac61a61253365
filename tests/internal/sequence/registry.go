package sequence

import (
	"fmt"

	"github.com/golang/glog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry collects cases in declaration order. Names are unique so every case maps to exactly one spec.
type Registry struct {
	cases *orderedmap.OrderedMap[string, Case]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{cases: orderedmap.New[string, Case]()}
}

// Add appends cases to the registry. It stops at the first case whose name is empty or already registered.
func (registry *Registry) Add(cases ...Case) error {
	for _, testCase := range cases {
		if testCase.Name == "" {
			return fmt.Errorf("case name cannot be empty")
		}

		if _, found := registry.cases.Get(testCase.Name); found {
			return fmt.Errorf("case %q is already registered", testCase.Name)
		}

		glog.V(100).Infof("Registering case %s", testCase)

		registry.cases.Set(testCase.Name, testCase)
	}

	return nil
}

// MustAdd is Add that panics on error. It is meant for package level suite definitions.
func (registry *Registry) MustAdd(cases ...Case) *Registry {
	if err := registry.Add(cases...); err != nil {
		panic(err)
	}

	return registry
}

// Get returns the case registered under name.
func (registry *Registry) Get(name string) (Case, bool) {
	return registry.cases.Get(name)
}

// Len returns the number of registered cases.
func (registry *Registry) Len() int {
	return registry.cases.Len()
}

// Cases returns the registered cases in declaration order.
func (registry *Registry) Cases() []Case {
	cases := make([]Case, 0, registry.cases.Len())

	for pair := registry.cases.Oldest(); pair != nil; pair = pair.Next() {
		cases = append(cases, pair.Value)
	}

	return cases
}

// Sorted returns the registered cases in execution order.
func (registry *Registry) Sorted() []Case {
	return Sort(registry.Cases())
}
