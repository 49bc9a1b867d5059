// Package state persists per-step run records so a provisioning run can be
// resumed after a crash without redoing work that already succeeded.
package state

import (
	"time"

	"github.com/mensylisir/nodeforge/common"
)

// InterruptedMessage is recorded on steps found still running at startup,
// i.e. a previous orchestrator process died mid-step.
const InterruptedMessage = "interrupted"

// RunRecord is the persisted status entry for one step. Seq is the order the
// record was first registered in, which fixes the snapshot order.
type RunRecord struct {
	StepName   string            `json:"stepName"`
	Status     common.StepStatus `json:"status"`
	Attempts   int               `json:"attempts"`
	LastError  string            `json:"lastError,omitempty"`
	StartedAt  time.Time         `json:"startedAt,omitempty"`
	FinishedAt time.Time         `json:"finishedAt,omitempty"`
	Seq        int               `json:"seq"`
}

// Duration returns how long the step ran, or zero when it never finished.
func (r RunRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store is the durable record set for one host. Put must be atomic and
// durable before it returns: once a record reads back succeeded it can never
// regress to pending, even across a crash. Reads never require a write lock,
// so a second process can report status while a run is in progress.
type Store interface {
	// Get returns the record for a step, and whether one exists.
	Get(stepName string) (RunRecord, bool, error)
	// Put upserts a record. First-time puts assign the next Seq.
	Put(rec RunRecord) error
	// Snapshot returns all records ordered by Seq.
	Snapshot() ([]RunRecord, error)
}
