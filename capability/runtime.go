package capability

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/step"
)

// containerdRuntime implements ContainerRuntime for containerd under systemd.
type containerdRuntime struct {
	runner   runner.Runner
	packages PackageManager
}

// NewContainerdRuntime creates a ContainerRuntime that installs containerd
// through the given package manager and manages it via systemctl.
func NewContainerdRuntime(r runner.Runner, packages PackageManager) ContainerRuntime {
	return &containerdRuntime{runner: r, packages: packages}
}

func (c *containerdRuntime) Active(ctx context.Context) (bool, error) {
	stdout, _, code, err := c.runner.Run(ctx, "systemctl is-active containerd")
	if err != nil {
		return false, errors.Wrap(err, "failed to probe containerd service")
	}
	return code == 0 && strings.TrimSpace(stdout) == "active", nil
}

func (c *containerdRuntime) InstallAndConfigure(ctx context.Context) step.Outcome {
	if outcome := c.packages.EnsureInstalled(ctx, "containerd"); !outcome.Succeeded {
		return outcome
	}

	// Kubelet requires the systemd cgroup driver; the stock default config
	// ships with SystemdCgroup=false.
	configCmd := `mkdir -p /etc/containerd && containerd config default | sed 's/SystemdCgroup = false/SystemdCgroup = true/' > /etc/containerd/config.toml`
	if outcome := sudoOutcome(ctx, c.runner, configCmd, ""); !outcome.Succeeded {
		return outcome
	}

	if outcome := sudoOutcome(ctx, c.runner, "systemctl enable containerd", ""); !outcome.Succeeded {
		return outcome
	}
	return sudoOutcome(ctx, c.runner, "systemctl restart containerd", "containerd installed and configured")
}
