package capability

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/step"
	"github.com/mensylisir/nodeforge/util"
)

const (
	modulesLoadDir = "/etc/modules-load.d"
	sysctlDir      = "/etc/sysctl.d"
)

const modulesConfTemplate = `{{- range .Modules }}
{{ . }}
{{- end }}
`

const sysctlConfTemplate = `{{- range .Settings }}
{{ .Key }} = {{ .Value }}
{{- end }}
`

// kernelConfigurator implements KernelConfigurator with modules-load.d and
// sysctl.d drop-in files.
type kernelConfigurator struct {
	runner runner.Runner
}

// NewKernelConfigurator creates a KernelConfigurator for the target host.
func NewKernelConfigurator(r runner.Runner) KernelConfigurator {
	return &kernelConfigurator{runner: r}
}

func (k *kernelConfigurator) ModulesLoaded(ctx context.Context, modules []string) (bool, error) {
	for _, mod := range modules {
		cmd := fmt.Sprintf("lsmod | grep -qw %s", mod)
		_, _, code, err := k.runner.Run(ctx, cmd)
		if err != nil {
			return false, errors.Wrapf(err, "failed to probe module %s", mod)
		}
		if code != 0 {
			return false, nil
		}
	}
	return true, nil
}

func (k *kernelConfigurator) ApplyModules(ctx context.Context, cfg ModuleConfig) step.Outcome {
	content, err := util.RenderString(modulesConfTemplate, util.Data{"Modules": cfg.Modules})
	if err != nil {
		return step.Failf("render modules config: %v", err)
	}

	path := filepath.Join(modulesLoadDir, cfg.FileName)
	if err := k.runner.WriteFile(ctx, path, []byte(content), common.FileMode0644); err != nil {
		return step.Failf("write %s: %v", path, err)
	}

	for _, mod := range cfg.Modules {
		if outcome := sudoOutcome(ctx, k.runner, "modprobe "+mod, ""); !outcome.Succeeded {
			return outcome
		}
	}
	return step.Succeedf("modules loaded: %s", strings.Join(cfg.Modules, ", "))
}

func (k *kernelConfigurator) SysctlsApplied(ctx context.Context, cfg SysctlConfig) (bool, error) {
	for _, setting := range cfg.Settings {
		stdout, _, code, err := k.runner.Run(ctx, "sysctl -n "+setting.Key)
		if err != nil {
			return false, errors.Wrapf(err, "failed to probe sysctl %s", setting.Key)
		}
		if code != 0 || strings.TrimSpace(stdout) != setting.Value {
			return false, nil
		}
	}
	return true, nil
}

func (k *kernelConfigurator) ApplySysctls(ctx context.Context, cfg SysctlConfig) step.Outcome {
	content, err := util.RenderString(sysctlConfTemplate, util.Data{"Settings": cfg.Settings})
	if err != nil {
		return step.Failf("render sysctl config: %v", err)
	}

	path := filepath.Join(sysctlDir, cfg.FileName)
	if err := k.runner.WriteFile(ctx, path, []byte(content), common.FileMode0644); err != nil {
		return step.Failf("write %s: %v", path, err)
	}
	return sudoOutcome(ctx, k.runner, "sysctl --system", fmt.Sprintf("%d kernel parameters applied", len(cfg.Settings)))
}
