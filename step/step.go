package step

import (
	"context"
	"fmt"
	"time"
)

// Outcome is the result of applying a step's action. Operational failures
// (missing package, unreachable network, non-zero exit) are reported with
// Succeeded=false and a descriptive message, never as Go errors.
type Outcome struct {
	Succeeded bool
	Message   string
	// Artifacts carries values a step produces for the run summary,
	// e.g. the kubeconfig path and join command from control-plane init.
	Artifacts map[string]string
}

// Succeed builds a successful Outcome with the given message.
func Succeed(message string) Outcome {
	return Outcome{Succeeded: true, Message: message}
}

// Succeedf builds a successful Outcome with a formatted message.
func Succeedf(format string, args ...interface{}) Outcome {
	return Outcome{Succeeded: true, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a failed Outcome with the given message.
func Fail(message string) Outcome {
	return Outcome{Succeeded: false, Message: message}
}

// Failf builds a failed Outcome with a formatted message.
func Failf(format string, args ...interface{}) Outcome {
	return Outcome{Succeeded: false, Message: fmt.Sprintf(format, args...)}
}

// WithArtifact returns a copy of the Outcome carrying the given artifact.
func (o Outcome) WithArtifact(key, value string) Outcome {
	if o.Artifacts == nil {
		o.Artifacts = make(map[string]string, 1)
	}
	o.Artifacts[key] = value
	return o
}

// Well-known artifact keys surfaced in the run summary.
const (
	ArtifactJoinCommand    = "joinCommand"
	ArtifactKubeconfigPath = "kubeconfigPath"
)

// Precondition decides whether a step needs to run at all. When needed is
// false the step is recorded as skipped, with reason as the explanation.
// A nil Precondition means the step always runs.
type Precondition func(ctx context.Context) (needed bool, reason string, err error)

// Action performs the step's mutation of the host. It is only ever invoked
// through the executor adapter and must be idempotent: re-running after an
// attempt with unknown outcome has to be safe.
type Action func(ctx context.Context) Outcome

// Postcondition verifies the action achieved its intended effect, independent
// of the action's own success signal. A nil Postcondition means the outcome is
// trusted as-is.
type Postcondition func(ctx context.Context) (ok bool, detail string, err error)

// Step is one named, idempotent unit of provisioning work. Steps are immutable
// once handed to the orchestrator and shared read-only during a run.
type Step struct {
	Name        string
	Description string
	// DependsOn lists step names that must have succeeded (or been skipped as
	// already satisfied) before this step may run.
	DependsOn []string
	// Timeout bounds a single action attempt. Zero means no timeout.
	Timeout       time.Duration
	Precondition  Precondition
	Action        Action
	Postcondition Postcondition
}

// Validate reports whether the step definition itself is well-formed.
// A malformed step is a programming error, not an operational failure.
func (s *Step) Validate() error {
	if s == nil {
		return fmt.Errorf("step is nil")
	}
	if s.Name == "" {
		return fmt.Errorf("step has no name")
	}
	if s.Action == nil {
		return fmt.Errorf("step %q has no action", s.Name)
	}
	for _, dep := range s.DependsOn {
		if dep == s.Name {
			return fmt.Errorf("step %q depends on itself", s.Name)
		}
	}
	return nil
}
