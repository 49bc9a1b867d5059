// Package orchestrator drives one provisioning run: it resolves the step
// graph, replays durable state from previous runs, and walks the steps in
// dependency order with bounded retries and failure containment.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/executor"
	"github.com/mensylisir/nodeforge/graph"
	"github.com/mensylisir/nodeforge/hook"
	"github.com/mensylisir/nodeforge/logger"
	"github.com/mensylisir/nodeforge/state"
	"github.com/mensylisir/nodeforge/step"
)

// DefaultMaxAttempts bounds executor invocations per step within one run.
const DefaultMaxAttempts = 3

// DefaultRetryDelay is the pause between attempts of the same step.
const DefaultRetryDelay = 5 * time.Second

// Orchestrator executes step sets against one host. It owns no transport;
// all host mutation goes through the executor adapter.
type Orchestrator struct {
	store       state.Store
	adapter     executor.Adapter
	clock       clockwork.Clock
	logger      *logrus.Entry
	maxAttempts int
	retryDelay  time.Duration
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMaxAttempts overrides the per-step retry budget. Values below one fall
// back to the default.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the pause between attempts. Zero disables the pause.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.retryDelay = d }
}

// WithClock injects a clock, used by tests for deterministic timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger sets the log entry run progress is reported through.
func WithLogger(entry *logrus.Entry) Option {
	return func(o *Orchestrator) { o.logger = entry }
}

// New creates an Orchestrator over the given durable store and adapter.
func New(store state.Store, adapter executor.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		adapter:     adapter,
		clock:       clockwork.NewRealClock(),
		logger:      logger.Log.WithField(common.LogFieldApp, common.AppName),
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunSummary is the result of one orchestrator run.
type RunSummary struct {
	RunID  string
	Host   string
	Status common.RunStatus
	// Records is the store snapshot after the run, in registration order.
	Records []state.RunRecord
	// Artifacts merges the artifacts of every step that succeeded this run.
	Artifacts  map[string]string
	StartedAt  time.Time
	FinishedAt time.Time
}

// JoinCommand returns the worker join command produced by control-plane
// initialization, or empty when no step published one.
func (s *RunSummary) JoinCommand() string {
	return s.Artifacts[step.ArtifactJoinCommand]
}

// Run walks the steps in dependency order. Operational step failures are
// contained: they are retried, then their dependents are skipped while
// independent branches continue. A non-nil error means the run itself could
// not proceed (bad graph, store failure, programming error in a step).
func (o *Orchestrator) Run(ctx context.Context, host string, steps []*step.Step) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		Host:      host,
		Artifacts: make(map[string]string),
		StartedAt: o.clock.Now(),
	}
	log := o.logger.WithFields(logrus.Fields{
		common.LogFieldRunID: summary.RunID,
		common.LogFieldHost:  host,
	})

	// Resolve before touching the store, so a malformed graph has no side
	// effects.
	order, err := graph.ResolveOrder(steps)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*step.Step, len(steps))
	for _, st := range steps {
		byName[st.Name] = st
	}

	if err := o.adoptInterrupted(order, log); err != nil {
		return nil, err
	}
	if err := o.registerPending(order); err != nil {
		return nil, err
	}

	log.Infof("Starting run with %d steps", len(order))

	// satisfied marks steps whose effect is in place: succeeded, or skipped
	// because the precondition found nothing to do. blocked marks terminal
	// failures and everything downstream of them.
	satisfied := make(map[string]bool, len(order))
	blocked := make(map[string]bool, len(order))
	cancelled := false

	for _, name := range order {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		st := byName[name]
		stepLog := log.WithField(common.LogFieldStepName, name)

		rec, found, err := o.store.Get(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read state for step %q: %w", name, err)
		}
		// succeeded is terminal: the step's effect is in place, so it
		// satisfies dependents even when an upstream step regresses on
		// a later run.
		if found && rec.Status == common.StatusSucceeded {
			satisfied[name] = true
			stepLog.Info("Step already succeeded in a previous run")
			continue
		}

		if dep := firstUnsatisfiedDep(st, satisfied); dep != "" {
			if err := o.recordDependencySkip(name, dep); err != nil {
				return nil, err
			}
			blocked[name] = true
			stepLog.Warnf("Skipping step: dependency [%s] did not succeed", dep)
			continue
		}

		outcome, err := o.runStep(ctx, st, rec, summary, stepLog)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case common.StatusSucceeded, common.StatusSkipped:
			satisfied[name] = true
		default:
			blocked[name] = true
			if deps := graph.Dependents(steps, name); len(deps) > 0 {
				stepLog.Warnf("Steps depending on [%s] will be skipped: %s", name, strings.Join(deps, ", "))
			}
		}
	}

	switch {
	case cancelled:
		summary.Status = common.RunCancelled
	case anyBlocked(blocked):
		summary.Status = common.RunAborted
	default:
		summary.Status = common.RunCompleted
	}
	summary.FinishedAt = o.clock.Now()

	records, err := o.store.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot run state: %w", err)
	}
	summary.Records = records

	log.Infof("Run finished with status [%s]", summary.Status)
	return summary, nil
}

// adoptInterrupted converts records left in running state by a crashed
// process into retryable failures.
func (o *Orchestrator) adoptInterrupted(order []string, log *logrus.Entry) error {
	for _, name := range order {
		rec, found, err := o.store.Get(name)
		if err != nil {
			return fmt.Errorf("failed to read state for step %q: %w", name, err)
		}
		if !found || rec.Status != common.StatusRunning {
			continue
		}
		log.WithField(common.LogFieldStepName, name).
			Warn("Found step interrupted by a previous process, marking failed")
		rec.Status = common.StatusFailed
		rec.LastError = state.InterruptedMessage
		rec.FinishedAt = o.clock.Now()
		if err := o.store.Put(rec); err != nil {
			return fmt.Errorf("failed to adopt interrupted step %q: %w", name, err)
		}
	}
	return nil
}

// registerPending gives every step a record up front, so status output shows
// steps a cancellation never reached.
func (o *Orchestrator) registerPending(order []string) error {
	for _, name := range order {
		_, found, err := o.store.Get(name)
		if err != nil {
			return fmt.Errorf("failed to read state for step %q: %w", name, err)
		}
		if found {
			continue
		}
		rec := state.RunRecord{StepName: name, Status: common.StatusPending}
		if err := o.store.Put(rec); err != nil {
			return fmt.Errorf("failed to register step %q: %w", name, err)
		}
	}
	return nil
}

// runStep executes one step with the retry budget, persisting the record
// after every attempt. The returned status is succeeded, skipped or failed;
// a non-nil error aborts the whole run.
func (o *Orchestrator) runStep(ctx context.Context, st *step.Step, rec state.RunRecord, summary *RunSummary, log *logrus.Entry) (common.StepStatus, error) {
	rec.StepName = st.Name
	rec.StartedAt = o.clock.Now()
	rec.FinishedAt = time.Time{}

	var fatal error
	for invocation := 1; invocation <= o.maxAttempts; invocation++ {
		if invocation > 1 && o.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return common.StatusFailed, nil
			case <-o.clock.After(o.retryDelay):
			}
		}

		attempt := &stepAttempt{
			orchestrator: o,
			ctx:          ctx,
			step:         st,
			rec:          &rec,
			summary:      summary,
			log:          log.WithField(common.LogFieldAttempt, rec.Attempts+1),
		}
		attemptErr := hook.Call(attempt)
		if attemptErr == nil && attempt.persistErr != nil {
			attemptErr = fmt.Errorf("failed to persist record for step %q: %w", st.Name, attempt.persistErr)
		}
		if attemptErr != nil {
			fatal = attemptErr
			break
		}
		if rec.Status != common.StatusFailed {
			return rec.Status, nil
		}
		log.Warnf("Attempt %d of step [%s] failed: %s", invocation, st.Name, rec.LastError)
	}

	if fatal != nil {
		return common.StatusFailed, fatal
	}
	log.Errorf("Step [%s] failed after %d attempts: %s", st.Name, rec.Attempts, rec.LastError)
	return common.StatusFailed, nil
}

// recordDependencySkip marks a step skipped because something upstream
// terminally failed. Unlike a precondition skip it does not satisfy the
// step's own dependents.
func (o *Orchestrator) recordDependencySkip(name, dep string) error {
	rec, _, err := o.store.Get(name)
	if err != nil {
		return fmt.Errorf("failed to read state for step %q: %w", name, err)
	}
	rec.StepName = name
	rec.Status = common.StatusSkipped
	rec.LastError = fmt.Sprintf("dependency %q did not succeed", dep)
	rec.FinishedAt = o.clock.Now()
	if err := o.store.Put(rec); err != nil {
		return fmt.Errorf("failed to record skip for step %q: %w", name, err)
	}
	return nil
}

// firstUnsatisfiedDep returns the first dependency whose effect is not in
// place. Dependencies precede the step in walk order, so anything not
// satisfied by now failed or was skipped downstream of a failure.
func firstUnsatisfiedDep(st *step.Step, satisfied map[string]bool) string {
	for _, dep := range st.DependsOn {
		if !satisfied[dep] {
			return dep
		}
	}
	return ""
}

func anyBlocked(blocked map[string]bool) bool {
	return len(blocked) > 0
}

// stepAttempt is one guarded executor invocation. Finally persists the record
// no matter how the attempt ends, which is what makes crash adoption and
// resume correct.
type stepAttempt struct {
	orchestrator *Orchestrator
	ctx          context.Context
	step         *step.Step
	rec          *state.RunRecord
	summary      *RunSummary
	log          *logrus.Entry

	persistErr error
}

func (a *stepAttempt) Try() error {
	o := a.orchestrator
	rec := a.rec

	if a.step.Precondition != nil {
		needed, reason, err := a.step.Precondition(a.ctx)
		if err != nil {
			rec.Status = common.StatusFailed
			rec.LastError = fmt.Sprintf("precondition: %v", err)
			rec.FinishedAt = o.clock.Now()
			return nil
		}
		if !needed {
			rec.Status = common.StatusSkipped
			rec.LastError = reason
			rec.FinishedAt = o.clock.Now()
			a.log.Infof("Skipping step [%s]: %s", a.step.Name, reason)
			return nil
		}
	}

	// Persist the running marker before mutating the host, so a crash
	// mid-action is detectable on the next run.
	rec.Status = common.StatusRunning
	rec.Attempts++
	if err := o.store.Put(*rec); err != nil {
		return fmt.Errorf("failed to persist running state for step %q: %w", a.step.Name, err)
	}

	a.log.Infof("Executing step [%s]", a.step.Name)
	outcome, err := o.adapter.Execute(a.ctx, a.step)
	if err != nil {
		rec.Status = common.StatusFailed
		rec.LastError = err.Error()
		rec.FinishedAt = o.clock.Now()
		return fmt.Errorf("step %q: %w", a.step.Name, err)
	}

	if !outcome.Succeeded {
		rec.Status = common.StatusFailed
		rec.LastError = outcome.Message
		rec.FinishedAt = o.clock.Now()
		return nil
	}

	if a.step.Postcondition != nil {
		ok, detail, err := a.step.Postcondition(a.ctx)
		if err != nil {
			rec.Status = common.StatusFailed
			rec.LastError = fmt.Sprintf("action succeeded (%s) but postcondition errored: %v", outcome.Message, err)
			rec.FinishedAt = o.clock.Now()
			return nil
		}
		if !ok {
			rec.Status = common.StatusFailed
			rec.LastError = fmt.Sprintf("action succeeded (%s) but postcondition not satisfied: %s", outcome.Message, detail)
			rec.FinishedAt = o.clock.Now()
			return nil
		}
	}

	rec.Status = common.StatusSucceeded
	rec.LastError = ""
	rec.FinishedAt = o.clock.Now()
	for k, v := range outcome.Artifacts {
		a.summary.Artifacts[k] = v
	}
	a.log.Infof("Step [%s] succeeded", a.step.Name)
	return nil
}

func (a *stepAttempt) Catch(err error) error {
	return err
}

func (a *stepAttempt) Finally() {
	if err := a.orchestrator.store.Put(*a.rec); err != nil {
		a.persistErr = err
		a.log.Errorf("Failed to persist record for step [%s]: %v", a.step.Name, err)
	}
}
