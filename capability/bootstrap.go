package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/step"
)

const adminKubeconfigPath = "/etc/kubernetes/admin.conf"

// kubeadmBootstrap implements ClusterBootstrap over the kubeadm CLI.
type kubeadmBootstrap struct {
	runner runner.Runner
}

// NewKubeadmBootstrap creates a ClusterBootstrap driven by kubeadm.
func NewKubeadmBootstrap(r runner.Runner) ClusterBootstrap {
	return &kubeadmBootstrap{runner: r}
}

func (b *kubeadmBootstrap) Initialized(ctx context.Context) (bool, error) {
	return b.fileExists(ctx, adminKubeconfigPath)
}

func (b *kubeadmBootstrap) InitControlPlane(ctx context.Context, kubernetesVersion, podCIDR, serviceCIDR string) (BootstrapResult, error) {
	initCmd := fmt.Sprintf(
		"kubeadm init --kubernetes-version=%s --pod-network-cidr=%s --service-cidr=%s",
		kubernetesVersion, podCIDR, serviceCIDR,
	)
	_, stderr, code, err := b.runner.SudoRun(ctx, initCmd)
	if err != nil {
		return BootstrapResult{}, errors.Wrap(err, "kubeadm init")
	}
	if code != 0 {
		return BootstrapResult{}, errors.New(exitFailure(initCmd, code, stderr))
	}

	// A fresh token with the full join line is more robust than scraping the
	// init output.
	joinCmd := "kubeadm token create --print-join-command"
	stdout, stderr, code, err := b.runner.SudoRun(ctx, joinCmd)
	if err != nil {
		return BootstrapResult{}, errors.Wrap(err, "kubeadm token create")
	}
	if code != 0 {
		return BootstrapResult{}, errors.New(exitFailure(joinCmd, code, stderr))
	}

	return BootstrapResult{
		KubeconfigPath: adminKubeconfigPath,
		JoinCommand:    strings.TrimSpace(stdout),
	}, nil
}

func (b *kubeadmBootstrap) Joined(ctx context.Context) (bool, error) {
	return b.fileExists(ctx, "/etc/kubernetes/kubelet.conf")
}

func (b *kubeadmBootstrap) JoinAsWorker(ctx context.Context, masterAddress, token, caCertHash string) step.Outcome {
	cmd := fmt.Sprintf(
		"kubeadm join %s --token %s --discovery-token-ca-cert-hash %s",
		masterAddress, token, caCertHash,
	)
	return sudoOutcome(ctx, b.runner, cmd, fmt.Sprintf("joined cluster at %s", masterAddress))
}

func (b *kubeadmBootstrap) fileExists(ctx context.Context, path string) (bool, error) {
	_, _, code, err := b.runner.SudoRun(ctx, "test -f "+path)
	if err != nil {
		return false, errors.Wrapf(err, "failed to probe %s", path)
	}
	return code == 0, nil
}
