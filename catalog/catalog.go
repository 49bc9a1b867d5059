// Package catalog builds the role-specific provisioning plan: a dependency
// ordered set of steps wired to the host capabilities.
package catalog

import (
	"context"
	"time"

	"github.com/mensylisir/nodeforge/capability"
	"github.com/mensylisir/nodeforge/config"
	"github.com/mensylisir/nodeforge/step"
)

// Step names, stable across releases; run records are keyed by them.
const (
	StepRefreshPackageIndex     = "refresh-package-index"
	StepInstallPrereqs          = "install-prereqs"
	StepDisableSwap             = "disable-swap"
	StepConfigureKernelModules  = "configure-kernel-modules"
	StepConfigureSysctl         = "configure-sysctl"
	StepApplyStaticAddress      = "apply-static-address"
	StepInstallContainerRuntime = "install-container-runtime"
	StepInstallClusterTools     = "install-cluster-tools"
	StepInitControlPlane        = "init-control-plane"
	StepJoinCluster             = "join-cluster"
)

var prereqPackages = []string{"apt-transport-https", "ca-certificates", "curl", "gpg"}

var clusterToolPackages = []string{"kubelet", "kubeadm", "kubectl"}

var kernelModules = capability.ModuleConfig{
	FileName: "k8s.conf",
	Modules:  []string{"overlay", "br_netfilter"},
}

var kernelSysctls = capability.SysctlConfig{
	FileName: "99-kubernetes.conf",
	Settings: []capability.SysctlSetting{
		{Key: "net.bridge.bridge-nf-call-iptables", Value: "1"},
		{Key: "net.bridge.bridge-nf-call-ip6tables", Value: "1"},
		{Key: "net.ipv4.ip_forward", Value: "1"},
	},
}

// Steps assembles the plan for the configured role. The returned steps are
// self-contained: every capability they need is captured at build time, and
// their actions run only through the executor.
func Steps(cfg *config.NodeConfig, caps capability.Set) []*step.Step {
	steps := []*step.Step{
		{
			Name:        StepRefreshPackageIndex,
			Description: "Refresh the package index",
			Timeout:     5 * time.Minute,
			Action:      caps.Packages.RefreshIndex,
		},
		{
			Name:         StepInstallPrereqs,
			Description:  "Install transport and keyring prerequisites",
			DependsOn:    []string{StepRefreshPackageIndex},
			Timeout:      10 * time.Minute,
			Precondition: packagesPresent(caps.Packages, prereqPackages),
			Action: func(ctx context.Context) step.Outcome {
				return caps.Packages.EnsureInstalled(ctx, prereqPackages...)
			},
			Postcondition: packagesPostcondition(caps.Packages, prereqPackages),
		},
		{
			Name:        StepDisableSwap,
			Description: "Disable swap now and across reboots",
			Timeout:     time.Minute,
			Precondition: func(ctx context.Context) (bool, string, error) {
				enabled, err := caps.Swap.Enabled(ctx)
				if err != nil {
					return false, "", err
				}
				return enabled, "swap already disabled", nil
			},
			Action: caps.Swap.Disable,
			Postcondition: func(ctx context.Context) (bool, string, error) {
				enabled, err := caps.Swap.Enabled(ctx)
				if err != nil {
					return false, "", err
				}
				if enabled {
					return false, "swap still enabled", nil
				}
				return true, "", nil
			},
		},
		{
			Name:        StepConfigureKernelModules,
			Description: "Load kernel modules required by the container runtime",
			Timeout:     2 * time.Minute,
			Precondition: func(ctx context.Context) (bool, string, error) {
				loaded, err := caps.Kernel.ModulesLoaded(ctx, kernelModules.Modules)
				if err != nil {
					return false, "", err
				}
				return !loaded, "kernel modules already loaded", nil
			},
			Action: func(ctx context.Context) step.Outcome {
				return caps.Kernel.ApplyModules(ctx, kernelModules)
			},
			Postcondition: func(ctx context.Context) (bool, string, error) {
				loaded, err := caps.Kernel.ModulesLoaded(ctx, kernelModules.Modules)
				if err != nil {
					return false, "", err
				}
				if !loaded {
					return false, "kernel modules not loaded", nil
				}
				return true, "", nil
			},
		},
		{
			Name:        StepConfigureSysctl,
			Description: "Apply kernel parameters for pod networking",
			DependsOn:   []string{StepConfigureKernelModules},
			Timeout:     2 * time.Minute,
			Precondition: func(ctx context.Context) (bool, string, error) {
				applied, err := caps.Kernel.SysctlsApplied(ctx, kernelSysctls)
				if err != nil {
					return false, "", err
				}
				return !applied, "kernel parameters already applied", nil
			},
			Action: func(ctx context.Context) step.Outcome {
				return caps.Kernel.ApplySysctls(ctx, kernelSysctls)
			},
			Postcondition: func(ctx context.Context) (bool, string, error) {
				applied, err := caps.Kernel.SysctlsApplied(ctx, kernelSysctls)
				if err != nil {
					return false, "", err
				}
				if !applied {
					return false, "kernel parameters not in effect", nil
				}
				return true, "", nil
			},
		},
		{
			Name:        StepInstallContainerRuntime,
			Description: "Install and configure containerd",
			DependsOn:   []string{StepInstallPrereqs, StepConfigureSysctl},
			Timeout:     10 * time.Minute,
			Precondition: func(ctx context.Context) (bool, string, error) {
				active, err := caps.Runtime.Active(ctx)
				if err != nil {
					return false, "", err
				}
				return !active, "container runtime already active", nil
			},
			Action: func(ctx context.Context) step.Outcome {
				return caps.Runtime.InstallAndConfigure(ctx)
			},
			Postcondition: func(ctx context.Context) (bool, string, error) {
				active, err := caps.Runtime.Active(ctx)
				if err != nil {
					return false, "", err
				}
				if !active {
					return false, "container runtime not active", nil
				}
				return true, "", nil
			},
		},
		{
			Name:         StepInstallClusterTools,
			Description:  "Install kubeadm, kubelet and kubectl",
			DependsOn:    []string{StepInstallPrereqs},
			Timeout:      10 * time.Minute,
			Precondition: packagesPresent(caps.Packages, clusterToolPackages),
			Action: func(ctx context.Context) step.Outcome {
				return caps.Packages.EnsureInstalled(ctx, clusterToolPackages...)
			},
			Postcondition: packagesPostcondition(caps.Packages, clusterToolPackages),
		},
	}

	finalDeps := []string{
		StepDisableSwap,
		StepInstallContainerRuntime,
		StepInstallClusterTools,
	}

	if net := cfg.Spec.Network; net != nil {
		steps = append(steps, &step.Step{
			Name:        StepApplyStaticAddress,
			Description: "Apply a static address to " + net.Interface,
			Timeout:     2 * time.Minute,
			Precondition: func(ctx context.Context) (bool, string, error) {
				applied, err := caps.Network.AddressApplied(ctx, net.Interface, net.Address)
				if err != nil {
					return false, "", err
				}
				return !applied, "static address already applied", nil
			},
			Action: func(ctx context.Context) step.Outcome {
				return caps.Network.ApplyStaticAddress(ctx, net.Interface, net.Address, net.Gateway, net.DNS)
			},
			Postcondition: func(ctx context.Context) (bool, string, error) {
				applied, err := caps.Network.AddressApplied(ctx, net.Interface, net.Address)
				if err != nil {
					return false, "", err
				}
				if !applied {
					return false, "address not present on interface", nil
				}
				return true, "", nil
			},
		})
		finalDeps = append(finalDeps, StepApplyStaticAddress)
	}

	switch cfg.Spec.Role {
	case config.RoleMaster:
		spec := cfg.Spec
		steps = append(steps, &step.Step{
			Name:        StepInitControlPlane,
			Description: "Initialize the control plane",
			DependsOn:   finalDeps,
			Timeout:     15 * time.Minute,
			Precondition: func(ctx context.Context) (bool, string, error) {
				initialized, err := caps.Bootstrap.Initialized(ctx)
				if err != nil {
					return false, "", err
				}
				return !initialized, "control plane already initialized", nil
			},
			Action: func(ctx context.Context) step.Outcome {
				result, err := caps.Bootstrap.InitControlPlane(ctx, spec.KubernetesVersion, spec.PodCIDR, spec.ServiceCIDR)
				if err != nil {
					return step.Failf("control plane init: %v", err)
				}
				return step.Succeed("control plane initialized").
					WithArtifact(step.ArtifactKubeconfigPath, result.KubeconfigPath).
					WithArtifact(step.ArtifactJoinCommand, result.JoinCommand)
			},
			Postcondition: func(ctx context.Context) (bool, string, error) {
				initialized, err := caps.Bootstrap.Initialized(ctx)
				if err != nil {
					return false, "", err
				}
				if !initialized {
					return false, "admin kubeconfig missing after init", nil
				}
				return true, "", nil
			},
		})
	case config.RoleWorker:
		join := cfg.Spec.Join
		steps = append(steps, &step.Step{
			Name:        StepJoinCluster,
			Description: "Join the cluster as a worker",
			DependsOn:   finalDeps,
			Timeout:     10 * time.Minute,
			Precondition: func(ctx context.Context) (bool, string, error) {
				joined, err := caps.Bootstrap.Joined(ctx)
				if err != nil {
					return false, "", err
				}
				return !joined, "node already joined a cluster", nil
			},
			Action: func(ctx context.Context) step.Outcome {
				return caps.Bootstrap.JoinAsWorker(ctx, join.MasterAddress, join.Token, join.CACertHash)
			},
			Postcondition: func(ctx context.Context) (bool, string, error) {
				joined, err := caps.Bootstrap.Joined(ctx)
				if err != nil {
					return false, "", err
				}
				if !joined {
					return false, "kubelet config missing after join", nil
				}
				return true, "", nil
			},
		})
	}

	return steps
}

// packagesPresent builds a precondition that skips installation when every
// named package is already present.
func packagesPresent(pm capability.PackageManager, names []string) step.Precondition {
	return func(ctx context.Context) (bool, string, error) {
		for _, name := range names {
			installed, err := pm.Installed(ctx, name)
			if err != nil {
				return false, "", err
			}
			if !installed {
				return true, "", nil
			}
		}
		return false, "packages already installed", nil
	}
}

func packagesPostcondition(pm capability.PackageManager, names []string) step.Postcondition {
	return func(ctx context.Context) (bool, string, error) {
		for _, name := range names {
			installed, err := pm.Installed(ctx, name)
			if err != nil {
				return false, "", err
			}
			if !installed {
				return false, "package not installed: " + name, nil
			}
		}
		return true, "", nil
	}
}
