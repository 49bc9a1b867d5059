package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/nodeforge/cache"
	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/step"
)

// probeTTL bounds how long a package-installed probe result is trusted.
const probeTTL = 2 * time.Minute

// aptPackageManager implements PackageManager for dpkg/apt systems.
type aptPackageManager struct {
	runner runner.Runner
	probes *cache.Cache[string, bool]
}

// NewAptPackageManager creates a PackageManager backed by apt-get and
// dpkg-query.
func NewAptPackageManager(r runner.Runner) PackageManager {
	return &aptPackageManager{
		runner: r,
		probes: cache.NewCache(cache.WithDefaultTTL[string, bool](probeTTL)),
	}
}

func (m *aptPackageManager) RefreshIndex(ctx context.Context) step.Outcome {
	return sudoOutcome(ctx, m.runner, "apt-get update -q", "package index refreshed")
}

func (m *aptPackageManager) Installed(ctx context.Context, name string) (bool, error) {
	if installed, ok := m.probes.Get(name); ok {
		return installed, nil
	}

	cmd := fmt.Sprintf("dpkg-query -W -f='${Status}' %s", name)
	stdout, _, code, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return false, errors.Wrapf(err, "failed to query package %s", name)
	}
	// dpkg-query exits non-zero for unknown packages; that just means
	// "not installed".
	installed := code == 0 && strings.Contains(stdout, "install ok installed")
	m.probes.Set(name, installed)
	return installed, nil
}

func (m *aptPackageManager) EnsureInstalled(ctx context.Context, names ...string) step.Outcome {
	missing := make([]string, 0, len(names))
	for _, name := range names {
		installed, err := m.Installed(ctx, name)
		if err != nil {
			return step.Failf("package probe: %v", err)
		}
		if !installed {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return step.Succeedf("packages already installed: %s", strings.Join(names, ", "))
	}

	cmd := fmt.Sprintf("DEBIAN_FRONTEND=noninteractive apt-get install -y -q %s", strings.Join(missing, " "))
	outcome := sudoOutcome(ctx, m.runner, cmd, fmt.Sprintf("installed: %s", strings.Join(missing, ", ")))
	if outcome.Succeeded {
		for _, name := range missing {
			m.probes.Set(name, true)
		}
	}
	return outcome
}
