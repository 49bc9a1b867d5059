package catalog

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/nodeforge/capability"
	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/executor"
	"github.com/mensylisir/nodeforge/orchestrator"
	"github.com/mensylisir/nodeforge/state"
	"github.com/mensylisir/nodeforge/step"
)

// fakeHost simulates host state: actions mutate it, probes read it. Unlike
// stubCaps it makes pre- and postconditions behave like a real machine.
type fakeHost struct {
	installed     map[string]bool
	swapEnabled   bool
	modulesLoaded bool
	sysctlsSet    bool
	runtimeActive bool
	initialized   bool
	joined        bool

	runtimeFailures int // InstallAndConfigure fails this many times first
	actionCalls     int
}

func newFakeHost() *fakeHost {
	return &fakeHost{installed: make(map[string]bool), swapEnabled: true}
}

func (h *fakeHost) RefreshIndex(context.Context) step.Outcome {
	h.actionCalls++
	return step.Succeed("index refreshed")
}

func (h *fakeHost) Installed(_ context.Context, name string) (bool, error) {
	return h.installed[name], nil
}

func (h *fakeHost) EnsureInstalled(_ context.Context, names ...string) step.Outcome {
	h.actionCalls++
	for _, name := range names {
		h.installed[name] = true
	}
	return step.Succeed("installed")
}

func (h *fakeHost) Enabled(context.Context) (bool, error) { return h.swapEnabled, nil }

func (h *fakeHost) Disable(context.Context) step.Outcome {
	h.actionCalls++
	h.swapEnabled = false
	return step.Succeed("swap disabled")
}

func (h *fakeHost) ModulesLoaded(context.Context, []string) (bool, error) {
	return h.modulesLoaded, nil
}

func (h *fakeHost) ApplyModules(context.Context, capability.ModuleConfig) step.Outcome {
	h.actionCalls++
	h.modulesLoaded = true
	return step.Succeed("modules loaded")
}

func (h *fakeHost) SysctlsApplied(context.Context, capability.SysctlConfig) (bool, error) {
	return h.sysctlsSet, nil
}

func (h *fakeHost) ApplySysctls(context.Context, capability.SysctlConfig) step.Outcome {
	h.actionCalls++
	h.sysctlsSet = true
	return step.Succeed("sysctls applied")
}

func (h *fakeHost) Active(context.Context) (bool, error) { return h.runtimeActive, nil }

func (h *fakeHost) InstallAndConfigure(context.Context) step.Outcome {
	h.actionCalls++
	if h.runtimeFailures > 0 {
		h.runtimeFailures--
		return step.Fail("containerd: transient mirror error")
	}
	h.runtimeActive = true
	return step.Succeed("containerd running")
}

func (h *fakeHost) Initialized(context.Context) (bool, error) { return h.initialized, nil }

func (h *fakeHost) InitControlPlane(context.Context, string, string, string) (capability.BootstrapResult, error) {
	h.actionCalls++
	h.initialized = true
	return capability.BootstrapResult{
		KubeconfigPath: "/etc/kubernetes/admin.conf",
		JoinCommand:    "kubeadm join 10.0.0.1:6443 --token abc.def --discovery-token-ca-cert-hash sha256:123",
	}, nil
}

func (h *fakeHost) Joined(context.Context) (bool, error) { return h.joined, nil }

func (h *fakeHost) JoinAsWorker(context.Context, string, string, string) step.Outcome {
	h.actionCalls++
	h.joined = true
	return step.Succeed("joined")
}

func (h *fakeHost) AddressApplied(context.Context, string, string) (bool, error) {
	return false, nil
}

func (h *fakeHost) ApplyStaticAddress(context.Context, string, string, string, []string) step.Outcome {
	h.actionCalls++
	return step.Succeed("address applied")
}

func hostSet(h *fakeHost) capability.Set {
	return capability.Set{
		Packages:  h,
		Swap:      h,
		Kernel:    h,
		Runtime:   h,
		Bootstrap: h,
		Network:   h,
	}
}

func newRunner(store state.Store) *orchestrator.Orchestrator {
	return orchestrator.New(store, executor.NewHostAdapter(nil),
		orchestrator.WithRetryDelay(0),
		orchestrator.WithClock(clockwork.NewFakeClock()),
	)
}

func TestProvisionMasterHappyPath(t *testing.T) {
	host := newFakeHost()
	store := state.NewMemoryStore()
	steps := Steps(masterConfig(), hostSet(host))

	summary, err := newRunner(store).Run(context.Background(), "master-0", steps)
	require.NoError(t, err)
	assert.Equal(t, common.RunCompleted, summary.Status)
	assert.Contains(t, summary.JoinCommand(), "kubeadm join")

	for _, rec := range summary.Records {
		assert.NotEqual(t, common.StatusFailed, rec.Status, rec.StepName)
	}
	rec, found, err := store.Get(StepInitControlPlane)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, common.StatusSucceeded, rec.Status)
}

func TestProvisionMasterSecondRunDoesNothing(t *testing.T) {
	host := newFakeHost()
	store := state.NewMemoryStore()
	steps := Steps(masterConfig(), hostSet(host))

	runner := newRunner(store)
	_, err := runner.Run(context.Background(), "master-0", steps)
	require.NoError(t, err)
	callsAfterFirst := host.actionCalls

	summary, err := runner.Run(context.Background(), "master-0", steps)
	require.NoError(t, err)
	assert.Equal(t, common.RunCompleted, summary.Status)
	assert.Equal(t, callsAfterFirst, host.actionCalls, "second run must not touch the host")
}

func TestProvisionWorkerHappyPath(t *testing.T) {
	host := newFakeHost()
	store := state.NewMemoryStore()
	steps := Steps(workerConfig(), hostSet(host))

	summary, err := newRunner(store).Run(context.Background(), "worker-0", steps)
	require.NoError(t, err)
	assert.Equal(t, common.RunCompleted, summary.Status)
	assert.True(t, host.joined)
	assert.Empty(t, summary.JoinCommand())
}

func TestProvisionRuntimeFailsTwiceThenSucceeds(t *testing.T) {
	host := newFakeHost()
	host.runtimeFailures = 2
	store := state.NewMemoryStore()
	steps := Steps(masterConfig(), hostSet(host))

	summary, err := newRunner(store).Run(context.Background(), "master-0", steps)
	require.NoError(t, err)
	assert.Equal(t, common.RunCompleted, summary.Status)

	rec, _, err := store.Get(StepInstallContainerRuntime)
	require.NoError(t, err)
	assert.Equal(t, common.StatusSucceeded, rec.Status)
	assert.Equal(t, 3, rec.Attempts)
}

func TestProvisionRuntimeExhaustionSkipsClusterStep(t *testing.T) {
	host := newFakeHost()
	host.runtimeFailures = 10
	store := state.NewMemoryStore()
	steps := Steps(masterConfig(), hostSet(host))

	summary, err := newRunner(store).Run(context.Background(), "master-0", steps)
	require.NoError(t, err)
	assert.Equal(t, common.RunAborted, summary.Status)

	runtimeRec, _, err := store.Get(StepInstallContainerRuntime)
	require.NoError(t, err)
	assert.Equal(t, common.StatusFailed, runtimeRec.Status)

	initRec, _, err := store.Get(StepInitControlPlane)
	require.NoError(t, err)
	assert.Equal(t, common.StatusSkipped, initRec.Status)
	assert.False(t, host.initialized)

	// Branches independent of the runtime still complete.
	toolsRec, _, err := store.Get(StepInstallClusterTools)
	require.NoError(t, err)
	assert.Equal(t, common.StatusSucceeded, toolsRec.Status)
}
