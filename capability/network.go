package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/step"
	"github.com/mensylisir/nodeforge/util"
)

const netplanPath = "/etc/netplan/99-nodeforge.yaml"

const netplanTemplate = `network:
  version: 2
  ethernets:
    {{ .Interface }}:
      dhcp4: false
      addresses:
        - {{ .Address }}
{{- if .Gateway }}
      routes:
        - to: default
          via: {{ .Gateway }}
{{- end }}
{{- if .DNS }}
      nameservers:
        addresses:
{{- range .DNS }}
          - {{ . }}
{{- end }}
{{- end }}
`

// netplanConfigurator implements NetworkConfigurator with a netplan drop-in.
type netplanConfigurator struct {
	runner runner.Runner
}

// NewNetplanConfigurator creates a NetworkConfigurator backed by netplan.
func NewNetplanConfigurator(r runner.Runner) NetworkConfigurator {
	return &netplanConfigurator{runner: r}
}

func (n *netplanConfigurator) AddressApplied(ctx context.Context, iface, address string) (bool, error) {
	stdout, _, code, err := n.runner.Run(ctx, fmt.Sprintf("ip -o -4 addr show dev %s", iface))
	if err != nil {
		return false, errors.Wrapf(err, "failed to probe addresses on %s", iface)
	}
	if code != 0 {
		return false, nil
	}
	return strings.Contains(stdout, address), nil
}

func (n *netplanConfigurator) ApplyStaticAddress(ctx context.Context, iface, address, gateway string, dns []string) step.Outcome {
	content, err := util.RenderString(netplanTemplate, util.Data{
		"Interface": iface,
		"Address":   address,
		"Gateway":   gateway,
		"DNS":       dns,
	})
	if err != nil {
		return step.Failf("render netplan config: %v", err)
	}

	if err := n.runner.WriteFile(ctx, netplanPath, []byte(content), common.FileMode0600); err != nil {
		return step.Failf("write %s: %v", netplanPath, err)
	}
	return sudoOutcome(ctx, n.runner, "netplan apply", fmt.Sprintf("static address %s applied to %s", address, iface))
}
