package config

import (
	"fmt"
	"strings"

	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/ip"
	"github.com/mensylisir/nodeforge/util"
)

// Role is the provisioning target for a host. The two roles are mutually
// exclusive: a node is either a control plane or a worker.
type Role string

const (
	RoleMaster Role = "master"
	RoleWorker Role = "worker"
)

// NodeConfig is the top-level configuration structure.
type NodeConfig struct {
	APIVersion string       `yaml:"apiVersion"`
	Kind       string       `yaml:"kind"`
	Metadata   MetadataSpec `yaml:"metadata"`
	Spec       NodeSpec     `yaml:"spec"`
}

// MetadataSpec defines metadata for the node configuration.
type MetadataSpec struct {
	// Name is the host identity; run state and the advisory lock are keyed by it.
	Name string `yaml:"name"`
}

// NodeSpec defines what the target host should become.
type NodeSpec struct {
	Role              Role   `yaml:"role"`
	KubernetesVersion string `yaml:"kubernetesVersion,omitempty"`
	// PodCIDR is required for the master role; it is handed to the
	// cluster-bootstrap tool as the pod network range.
	PodCIDR     string `yaml:"podCIDR,omitempty"`
	ServiceCIDR string `yaml:"serviceCIDR,omitempty"`
	// Network, when present, requests static addressing for an interface
	// before the cluster steps run.
	Network *StaticNetworkSpec `yaml:"network,omitempty"`
	// Join carries the credentials a worker needs to join an existing
	// control plane. Ignored for the master role.
	Join *JoinSpec `yaml:"join,omitempty"`
	// SSH selects a remote target. When absent, the local host is provisioned.
	SSH *SSHSpec `yaml:"ssh,omitempty"`
	// StateDir is where run records, the host lock and logs live.
	StateDir string `yaml:"stateDir,omitempty"`
	// MaxAttempts bounds retries per step. Zero means the default.
	MaxAttempts int `yaml:"maxAttempts,omitempty"`
}

// StaticNetworkSpec defines a static address assignment for one interface.
type StaticNetworkSpec struct {
	Interface string   `yaml:"interface"`
	Address   string   `yaml:"address"` // CIDR notation, e.g. 192.168.10.50/24
	Gateway   string   `yaml:"gateway"`
	DNS       []string `yaml:"dns,omitempty"`
}

// JoinSpec defines the worker join credentials.
type JoinSpec struct {
	MasterAddress string `yaml:"masterAddress"` // host:port of the control plane endpoint
	Token         string `yaml:"token"`
	CACertHash    string `yaml:"caCertHash"`
}

// SSHSpec defines how to reach a remote target host.
type SSHSpec struct {
	Address        string `yaml:"address"`
	Port           int    `yaml:"port,omitempty"` // Defaults to 22
	User           string `yaml:"user"`
	Password       string `yaml:"password,omitempty"`
	PrivateKeyPath string `yaml:"privateKeyPath,omitempty"`
}

// HostID returns the identity run state is keyed by.
func (c *NodeConfig) HostID() string {
	if c.Metadata.Name != "" {
		return c.Metadata.Name
	}
	if c.Spec.SSH != nil && c.Spec.SSH.Address != "" {
		return c.Spec.SSH.Address
	}
	return common.LocalHostID
}

// ValidationError reports an invalid or missing configuration field. It is
// fatal: the orchestrator refuses to start a run with an invalid configuration.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks the configuration once at the start of a run; it is never
// mutated afterwards.
func (c *NodeConfig) Validate() error {
	if c == nil {
		return invalid("config", "is nil")
	}

	var errs []error

	switch c.Spec.Role {
	case RoleMaster:
		if c.Spec.PodCIDR == "" {
			errs = append(errs, invalid("spec.podCIDR", "required for role master"))
		} else if err := ip.ValidateCIDR(c.Spec.PodCIDR); err != nil {
			errs = append(errs, invalid("spec.podCIDR", err.Error()))
		}
		if c.Spec.ServiceCIDR != "" {
			if err := ip.ValidateCIDR(c.Spec.ServiceCIDR); err != nil {
				errs = append(errs, invalid("spec.serviceCIDR", err.Error()))
			}
		}
	case RoleWorker:
		if c.Spec.Join == nil {
			errs = append(errs, invalid("spec.join", "required for role worker"))
		} else {
			if c.Spec.Join.MasterAddress == "" {
				errs = append(errs, invalid("spec.join.masterAddress", "required"))
			} else if err := ip.ValidateEndpoint(c.Spec.Join.MasterAddress); err != nil {
				errs = append(errs, invalid("spec.join.masterAddress", err.Error()))
			}
			if c.Spec.Join.Token == "" {
				errs = append(errs, invalid("spec.join.token", "required"))
			}
			if c.Spec.Join.CACertHash == "" {
				errs = append(errs, invalid("spec.join.caCertHash", "required"))
			} else if !strings.HasPrefix(c.Spec.Join.CACertHash, "sha256:") {
				errs = append(errs, invalid("spec.join.caCertHash", "must start with sha256:"))
			}
		}
	case "":
		errs = append(errs, invalid("spec.role", "required (master or worker)"))
	default:
		errs = append(errs, invalid("spec.role", fmt.Sprintf("must be master or worker, got %q", c.Spec.Role)))
	}

	if n := c.Spec.Network; n != nil {
		if n.Interface == "" {
			errs = append(errs, invalid("spec.network.interface", "required"))
		}
		if n.Address == "" {
			errs = append(errs, invalid("spec.network.address", "required"))
		} else if err := ip.ValidateAddressWithPrefix(n.Address); err != nil {
			errs = append(errs, invalid("spec.network.address", err.Error()))
		}
		if n.Gateway != "" {
			if err := ip.ValidateIP(n.Gateway); err != nil {
				errs = append(errs, invalid("spec.network.gateway", err.Error()))
			}
		}
		for i, dns := range n.DNS {
			if err := ip.ValidateIP(dns); err != nil {
				errs = append(errs, invalid(fmt.Sprintf("spec.network.dns[%d]", i), err.Error()))
			}
		}
	}

	if s := c.Spec.SSH; s != nil {
		if s.Address == "" {
			errs = append(errs, invalid("spec.ssh.address", "required"))
		} else if err := ip.ValidateHostAddress(s.Address); err != nil {
			errs = append(errs, invalid("spec.ssh.address", err.Error()))
		}
		if s.User == "" {
			errs = append(errs, invalid("spec.ssh.user", "required"))
		}
		if s.Password == "" && s.PrivateKeyPath == "" {
			errs = append(errs, invalid("spec.ssh", "either password or privateKeyPath is required"))
		}
	}

	if c.Spec.MaxAttempts < 0 {
		errs = append(errs, invalid("spec.maxAttempts", "must not be negative"))
	}

	return util.CombineErrors(errs...)
}
