package sequence

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/golang/glog"
	"k8s.io/utils/ptr"
)

// Func is the body of a single test case.
type Func func(ctx context.Context) error

// Case is a test case with an optional explicit execution order.
type Case struct {
	// Name is used as the spec text and must be unique within a Registry.
	Name string
	// Order is the declared execution order. Nil means the case was not given one and runs after every
	// ordered case.
	Order *int
	// Run is the test case body.
	Run Func
	// Labels are attached to the generated spec.
	Labels []string
}

// New returns a Case with an explicit order.
func New(name string, order int, run Func) Case {
	return Case{Name: name, Order: ptr.To(order), Run: run}
}

// Unordered returns a Case without an explicit order.
func Unordered(name string, run Func) Case {
	return Case{Name: name, Run: run}
}

// String returns the case name prefixed with its order.
func (c Case) String() string {
	if c.Order == nil {
		return fmt.Sprintf("[-] %s", c.Name)
	}

	return fmt.Sprintf("[%d] %s", *c.Order, c.Name)
}

// Sort returns a copy of cases sorted by order ascending. Cases without an order go last and equal orders keep
// their relative declaration order.
func Sort(cases []Case) []Case {
	sorted := slices.Clone(cases)

	slices.SortStableFunc(sorted, compare)

	return sorted
}

// All yields cases in execution order. The sort happens when iteration starts.
func All(cases []Case) iter.Seq[Case] {
	return func(yield func(Case) bool) {
		for _, testCase := range Sort(cases) {
			if !yield(testCase) {
				return
			}
		}
	}
}

// DuplicateOrders returns every order value that is shared by more than one case, ascending. Sharing an order is
// allowed; this only exists so tooling can point it out.
func DuplicateOrders(cases []Case) []int {
	seen := make(map[int]int)

	for _, testCase := range cases {
		if testCase.Order != nil {
			seen[*testCase.Order]++
		}
	}

	var duplicates []int

	for order, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, order)
		}
	}

	slices.Sort(duplicates)

	return duplicates
}

// Shift returns copies of cases with offset added to every explicit order. It lets independent scenario modules
// keep their own numbering while running in one sequence.
func Shift(offset int, cases ...Case) []Case {
	shifted := make([]Case, 0, len(cases))

	for _, testCase := range cases {
		if testCase.Order != nil {
			testCase.Order = ptr.To(*testCase.Order + offset)
		}

		shifted = append(shifted, testCase)
	}

	return shifted
}

// Labeled returns copies of cases with labels appended to their own.
func Labeled(labels []string, cases ...Case) []Case {
	labeled := make([]Case, 0, len(cases))

	for _, testCase := range cases {
		testCase.Labels = append(slices.Clone(testCase.Labels), labels...)
		labeled = append(labeled, testCase)
	}

	return labeled
}

func compare(left, right Case) int {
	switch {
	case left.Order == nil && right.Order == nil:
		return 0
	case left.Order == nil:
		return 1
	case right.Order == nil:
		return -1
	default:
		return cmp.Compare(*left.Order, *right.Order)
	}
}

// Outcome is the result class of an executed case.
type Outcome int

const (
	// Passed means the case returned no error.
	Passed Outcome = iota
	// Failed means the case returned an error other than a skip.
	Failed
	// Skipped means the case reported that it could not run.
	Skipped
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// SkipError marks a case as skipped rather than failed.
type SkipError struct {
	Reason string
}

// Error implements error.
func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns an error that makes Execute report the case as skipped.
func Skip(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// Result is the outcome of a single executed case.
type Result struct {
	Outcome Outcome
	Err     error
}

// Execute runs the case once and classifies its result.
func Execute(ctx context.Context, testCase Case) Result {
	if testCase.Run == nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("case %q has no body", testCase.Name)}
	}

	glog.V(90).Infof("Running case %s", testCase)

	err := testCase.Run(ctx)

	var skipErr *SkipError

	switch {
	case err == nil:
		return Result{Outcome: Passed}
	case errors.As(err, &skipErr):
		glog.V(90).Infof("Case %s skipped: %s", testCase.Name, skipErr.Reason)

		return Result{Outcome: Skipped, Err: skipErr}
	default:
		glog.V(90).Infof("Case %s failed: %v", testCase.Name, err)

		return Result{Outcome: Failed, Err: err}
	}
}
