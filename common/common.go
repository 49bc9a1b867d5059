package common

import (
	"io/fs"
)

// AppName names the binary; it shows up in log fields and default paths.
const AppName = "nodeforge"

// Logger field keys used to scope entries through the orchestration layers.
const (
	LogFieldApp      = "app"
	LogFieldRunID    = "run"
	LogFieldHost     = "host"
	LogFieldStepName = "step"
	LogFieldAttempt  = "attempt"
)

const (
	// FileMode0755 represents rwxr-xr-x
	FileMode0755 fs.FileMode = 0755
	// FileMode0644 represents rw-r--r--
	FileMode0644 fs.FileMode = 0644
	// FileMode0600 represents rw-------
	FileMode0600 fs.FileMode = 0600
	// FileMode0700 represents rwx------
	FileMode0700 fs.FileMode = 0700
)

const (
	DefaultSSHPort = 22
	// LocalHostID identifies the local machine when no host name or
	// address is configured.
	LocalHostID = "localhost"
)

// StepStatus is the lifecycle state of one provisioning step within a run.
// A record only moves forward, except failed -> running on retry.
// Succeeded and skipped are terminal.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

func (s StepStatus) String() string {
	if s == "" {
		return string(StatusPending)
	}
	return string(s)
}

// RunStatus is the overall outcome of a provisioning run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
	RunCancelled RunStatus = "cancelled"
)

func (s RunStatus) String() string {
	return string(s)
}
