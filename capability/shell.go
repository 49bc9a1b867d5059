package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/step"
)

// sudoOutcome runs cmd with privileges and folds the result into an Outcome.
// Transport errors and non-zero exits both yield a failed Outcome; callers
// that need stdout use the runner directly.
func sudoOutcome(ctx context.Context, r runner.Runner, cmd, successMsg string) step.Outcome {
	_, stderr, code, err := r.SudoRun(ctx, cmd)
	if err != nil {
		return step.Failf("command %q: %v", cmd, err)
	}
	if code != 0 {
		return step.Fail(exitFailure(cmd, code, stderr))
	}
	return step.Succeed(successMsg)
}

func exitFailure(cmd string, code int, stderr string) string {
	msg := fmt.Sprintf("command %q exited %d", cmd, code)
	if s := strings.TrimSpace(stderr); s != "" {
		msg += ": " + s
	}
	return msg
}
