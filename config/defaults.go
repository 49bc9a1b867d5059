package config

import (
	"path/filepath"

	"github.com/mensylisir/nodeforge/common"
)

// Default constants applied to a loaded NodeConfig.
const (
	DefaultAPIVersion       = "nodeforge.io/v1alpha1"
	DefaultKind             = "Node"
	DefaultKubeVersion      = "v1.28.0" // Should be updated alongside supported releases
	DefaultPodCIDR          = "10.244.0.0/16"
	DefaultServiceCIDR      = "10.96.0.0/12"
	DefaultStateDirBase     = "/var/lib"
	DefaultMaxAttempts      = 3
	DefaultControlPlanePort = 6443
)

// SetDefaults fills unset fields in place. It is called after Load and before
// Validate, so a minimal config file stays minimal.
func (c *NodeConfig) SetDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.Kind == "" {
		c.Kind = DefaultKind
	}
	if c.Spec.KubernetesVersion == "" {
		c.Spec.KubernetesVersion = DefaultKubeVersion
	}
	if c.Spec.Role == RoleMaster && c.Spec.PodCIDR == "" {
		c.Spec.PodCIDR = DefaultPodCIDR
	}
	if c.Spec.Role == RoleMaster && c.Spec.ServiceCIDR == "" {
		c.Spec.ServiceCIDR = DefaultServiceCIDR
	}
	if c.Spec.StateDir == "" {
		c.Spec.StateDir = filepath.Join(DefaultStateDirBase, common.AppName)
	}
	if c.Spec.MaxAttempts == 0 {
		c.Spec.MaxAttempts = DefaultMaxAttempts
	}
	if c.Spec.SSH != nil && c.Spec.SSH.Port == 0 {
		c.Spec.SSH.Port = common.DefaultSSHPort
	}
}
