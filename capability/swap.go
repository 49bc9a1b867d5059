package capability

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/step"
)

// swapManager implements SwapManager via swapon/swapoff and an fstab edit.
type swapManager struct {
	runner runner.Runner
}

// NewSwapManager creates a SwapManager for the target host.
func NewSwapManager(r runner.Runner) SwapManager {
	return &swapManager{runner: r}
}

func (m *swapManager) Enabled(ctx context.Context) (bool, error) {
	stdout, _, code, err := m.runner.Run(ctx, "swapon --noheadings --show")
	if err != nil {
		return false, errors.Wrap(err, "failed to probe swap state")
	}
	if code != 0 {
		// Kernels without swap support have no swapon; treat as disabled.
		return false, nil
	}
	return strings.TrimSpace(stdout) != "", nil
}

func (m *swapManager) Disable(ctx context.Context) step.Outcome {
	if outcome := sudoOutcome(ctx, m.runner, "swapoff -a", ""); !outcome.Succeeded {
		return outcome
	}
	// Comment out swap entries so the setting survives a reboot.
	fstabCmd := `sed -ri 's@^([^#].*[[:space:]]swap[[:space:]].*)$@# \1@' /etc/fstab`
	return sudoOutcome(ctx, m.runner, fstabCmd, "swap disabled and removed from fstab")
}
