package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/state"
	"github.com/mensylisir/nodeforge/step"
)

func sampleRecords() []state.RunRecord {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []state.RunRecord{
		{
			StepName:   "refresh-package-index",
			Status:     common.StatusSucceeded,
			Attempts:   1,
			StartedAt:  start,
			FinishedAt: start.Add(3 * time.Second),
			Seq:        0,
		},
		{
			StepName:   "install-container-runtime",
			Status:     common.StatusFailed,
			Attempts:   3,
			LastError:  "command \"apt-get install\" exited 100",
			StartedAt:  start.Add(3 * time.Second),
			FinishedAt: start.Add(90 * time.Second),
			Seq:        1,
		},
		{
			StepName:  "init-control-plane",
			Status:    common.StatusSkipped,
			LastError: "dependency \"install-container-runtime\" did not succeed",
			Seq:       2,
		},
	}
}

func TestRenderPlainContainsAllSteps(t *testing.T) {
	r := NewRenderer(WithColor(false))
	out := r.Render("node-1", common.RunAborted, sampleRecords(), nil)

	assert.Contains(t, out, "Provisioning run on node-1: aborted")
	assert.Contains(t, out, "refresh-package-index")
	assert.Contains(t, out, "install-container-runtime")
	assert.Contains(t, out, "init-control-plane")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "skipped")
}

func TestRenderPlainShowsDiagnostics(t *testing.T) {
	r := NewRenderer(WithColor(false))
	out := r.Render("node-1", common.RunAborted, sampleRecords(), nil)

	assert.Contains(t, out, `command "apt-get install" exited 100`)
	assert.Contains(t, out, `dependency "install-container-runtime" did not succeed`)
}

func TestRenderPlainHasNoAnsiEscapes(t *testing.T) {
	r := NewRenderer(WithColor(false))
	out := r.Render("node-1", common.RunCompleted, sampleRecords(), nil)
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderShowsAttemptsAndDurations(t *testing.T) {
	r := NewRenderer(WithColor(false))
	out := r.Render("node-1", common.RunAborted, sampleRecords(), nil)

	assert.Contains(t, out, "3s")
	assert.Contains(t, out, "1m30s")
	// The step that never ran shows placeholders.
	lines := strings.Split(out, "\n")
	var skippedLine string
	for _, line := range lines {
		if strings.Contains(line, "init-control-plane") {
			skippedLine = line
			break
		}
	}
	assert.Contains(t, skippedLine, "-")
}

func TestRenderIncludesJoinCommand(t *testing.T) {
	r := NewRenderer(WithColor(false))
	artifacts := map[string]string{
		step.ArtifactJoinCommand:    "kubeadm join 10.0.0.1:6443 --token abc.def",
		step.ArtifactKubeconfigPath: "/etc/kubernetes/admin.conf",
	}
	out := r.Render("master-0", common.RunCompleted, sampleRecords(), artifacts)

	assert.Contains(t, out, "kubeadm join 10.0.0.1:6443 --token abc.def")
	assert.Contains(t, out, "/etc/kubernetes/admin.conf")
}
