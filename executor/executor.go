// Package executor is the boundary through which all host mutation happens.
// The orchestrator never runs a step action directly; it hands the step to an
// Adapter, which can be swapped for a fake in tests.
package executor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/nodeforge/step"
)

// Adapter executes a step's action and reports the outcome. Expected
// operational failures come back as Outcome{Succeeded: false} with a
// descriptive message; only programming errors (nil step, missing action, a
// panicking action) surface as a non-nil error.
type Adapter interface {
	Execute(ctx context.Context, st *step.Step) (step.Outcome, error)
}

// HostAdapter runs step actions against the target host, enforcing the
// per-step timeout. It is the production Adapter.
type HostAdapter struct {
	logger *logrus.Entry
}

// NewHostAdapter creates an Adapter that logs through the given entry.
func NewHostAdapter(logger *logrus.Entry) *HostAdapter {
	return &HostAdapter{logger: logger}
}

func (a *HostAdapter) Execute(ctx context.Context, st *step.Step) (outcome step.Outcome, err error) {
	if err := st.Validate(); err != nil {
		return step.Outcome{}, fmt.Errorf("malformed step: %w", err)
	}

	runCtx := ctx
	if st.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, st.Timeout)
		defer cancel()
	}

	// A panic inside an action is a programming error, not an operational
	// failure; surface it instead of recording a retryable outcome.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in action of step %q: %v", st.Name, r)
		}
	}()

	if a.logger != nil {
		a.logger.Debugf("Executing action for step [%s]", st.Name)
	}

	outcome = st.Action(runCtx)

	// The action layer reports timeouts as ordinary failures; make sure
	// a missed deadline is visible even if the action swallowed it.
	if runCtx.Err() != nil && outcome.Succeeded {
		return step.Failf("step %q exceeded its timeout of %s", st.Name, st.Timeout), nil
	}
	return outcome, nil
}
