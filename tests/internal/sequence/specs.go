package sequence

import (
	"github.com/onsi/ginkgo/v2"
)

// Specs declares one ginkgo spec per case in execution order. It has to be called inside an Ordered container,
// and the container should also carry ContinueOnFailure so a failed case does not skip the rest of the sequence.
func Specs(cases []Case, decorators ...any) {
	for testCase := range All(cases) {
		args := append([]any{func(ctx ginkgo.SpecContext) {
			result := Execute(ctx, testCase)

			switch result.Outcome {
			case Skipped:
				ginkgo.Skip(result.Err.(*SkipError).Reason)
			case Failed:
				ginkgo.Fail(result.Err.Error())
			case Passed:
			}
		}}, decorators...)

		if len(testCase.Labels) > 0 {
			args = append(args, ginkgo.Label(testCase.Labels...))
		}

		ginkgo.It(testCase.Name, args...)
	}
}
