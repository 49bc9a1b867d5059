// Package capability defines the host-level collaborators provisioning steps
// are built from. Each capability hides the shell commands for one concern
// behind a small interface, so catalog steps stay declarative and tests can
// substitute fakes.
package capability

import (
	"context"

	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/step"
)

// PackageManager installs OS packages and probes their state.
type PackageManager interface {
	// RefreshIndex updates the package index.
	RefreshIndex(ctx context.Context) step.Outcome
	// Installed reports whether the named package is installed. Results are
	// cached briefly within a run.
	Installed(ctx context.Context, name string) (bool, error)
	// EnsureInstalled installs any of the named packages not already present.
	EnsureInstalled(ctx context.Context, names ...string) step.Outcome
}

// SwapManager turns swap off and keeps it off across reboots.
type SwapManager interface {
	Enabled(ctx context.Context) (bool, error)
	Disable(ctx context.Context) step.Outcome
}

// ModuleConfig describes kernel modules required on the node.
type ModuleConfig struct {
	// FileName is the basename written under /etc/modules-load.d.
	FileName string
	Modules  []string
}

// SysctlConfig describes kernel parameters required on the node.
type SysctlConfig struct {
	// FileName is the basename written under /etc/sysctl.d.
	FileName string
	// Settings holds key/value pairs in apply order.
	Settings []SysctlSetting
}

// SysctlSetting is one kernel parameter assignment.
type SysctlSetting struct {
	Key   string
	Value string
}

// KernelConfigurator loads kernel modules and applies sysctl parameters.
type KernelConfigurator interface {
	ModulesLoaded(ctx context.Context, modules []string) (bool, error)
	ApplyModules(ctx context.Context, cfg ModuleConfig) step.Outcome
	SysctlsApplied(ctx context.Context, cfg SysctlConfig) (bool, error)
	ApplySysctls(ctx context.Context, cfg SysctlConfig) step.Outcome
}

// ContainerRuntime installs and configures the container runtime service.
type ContainerRuntime interface {
	Active(ctx context.Context) (bool, error)
	InstallAndConfigure(ctx context.Context) step.Outcome
}

// BootstrapResult carries what control-plane initialization produces.
type BootstrapResult struct {
	KubeconfigPath string
	JoinCommand    string
}

// ClusterBootstrap drives kubeadm on the node.
type ClusterBootstrap interface {
	// Initialized reports whether this node already hosts a control plane.
	Initialized(ctx context.Context) (bool, error)
	// InitControlPlane initializes the control plane and returns the
	// kubeconfig path plus the command workers use to join.
	InitControlPlane(ctx context.Context, kubernetesVersion, podCIDR, serviceCIDR string) (BootstrapResult, error)
	// Joined reports whether this node already joined a cluster.
	Joined(ctx context.Context) (bool, error)
	// JoinAsWorker joins the cluster at masterAddress using a bootstrap token.
	JoinAsWorker(ctx context.Context, masterAddress, token, caCertHash string) step.Outcome
}

// NetworkConfigurator applies static addressing to a host interface.
type NetworkConfigurator interface {
	AddressApplied(ctx context.Context, iface, address string) (bool, error)
	ApplyStaticAddress(ctx context.Context, iface, address, gateway string, dns []string) step.Outcome
}

// Set bundles every capability the step catalog consumes.
type Set struct {
	Packages  PackageManager
	Swap      SwapManager
	Kernel    KernelConfigurator
	Runtime   ContainerRuntime
	Bootstrap ClusterBootstrap
	Network   NetworkConfigurator
}

// NewShellSet wires the shell-backed implementation of every capability over
// a single runner.
func NewShellSet(r runner.Runner) Set {
	packages := NewAptPackageManager(r)
	return Set{
		Packages:  packages,
		Swap:      NewSwapManager(r),
		Kernel:    NewKernelConfigurator(r),
		Runtime:   NewContainerdRuntime(r, packages),
		Bootstrap: NewKubeadmBootstrap(r),
		Network:   NewNetplanConfigurator(r),
	}
}
