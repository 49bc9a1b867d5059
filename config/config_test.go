package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMaster() *NodeConfig {
	cfg := &NodeConfig{
		Metadata: MetadataSpec{Name: "master-1"},
		Spec: NodeSpec{
			Role:    RoleMaster,
			PodCIDR: "192.168.0.0/16",
		},
	}
	cfg.SetDefaults()
	return cfg
}

func validWorker() *NodeConfig {
	cfg := &NodeConfig{
		Metadata: MetadataSpec{Name: "worker-1"},
		Spec: NodeSpec{
			Role: RoleWorker,
			Join: &JoinSpec{
				MasterAddress: "10.0.0.10:6443",
				Token:         "abcdef.0123456789abcdef",
				CACertHash:    "sha256:deadbeef",
			},
		},
	}
	cfg.SetDefaults()
	return cfg
}

func TestValidate_MasterHappyPath(t *testing.T) {
	assert.NoError(t, validMaster().Validate())
}

func TestValidate_WorkerHappyPath(t *testing.T) {
	assert.NoError(t, validWorker().Validate())
}

func TestValidate_MissingRole(t *testing.T) {
	cfg := validMaster()
	cfg.Spec.Role = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spec.role")
}

func TestValidate_UnknownRole(t *testing.T) {
	cfg := validMaster()
	cfg.Spec.Role = "minion"
	assert.Error(t, cfg.Validate())
}

func TestValidate_MasterBadPodCIDR(t *testing.T) {
	cfg := validMaster()
	cfg.Spec.PodCIDR = "192.168.0.1/16"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spec.podCIDR")
}

func TestValidate_WorkerMissingJoin(t *testing.T) {
	cfg := validWorker()
	cfg.Spec.Join = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spec.join")
}

func TestValidate_WorkerBadCACertHash(t *testing.T) {
	cfg := validWorker()
	cfg.Spec.Join.CACertHash = "md5:oops"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caCertHash")
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validWorker()
	cfg.Spec.Join.Token = ""
	cfg.Spec.Join.CACertHash = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
	assert.Contains(t, err.Error(), "caCertHash")
}

func TestValidate_StaticNetwork(t *testing.T) {
	cfg := validMaster()
	cfg.Spec.Network = &StaticNetworkSpec{
		Interface: "eth0",
		Address:   "192.168.10.50/24",
		Gateway:   "192.168.10.1",
		DNS:       []string{"1.1.1.1", "8.8.8.8"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Spec.Network.Address = "192.168.10.50" // missing prefix
	assert.Error(t, cfg.Validate())

	cfg.Spec.Network.Address = "192.168.10.50/24"
	cfg.Spec.Network.DNS = []string{"not-an-ip"}
	assert.Error(t, cfg.Validate())
}

func TestValidate_SSHNeedsCredentials(t *testing.T) {
	cfg := validMaster()
	cfg.Spec.SSH = &SSHSpec{Address: "10.0.0.5", User: "root"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password or privateKeyPath")

	cfg.Spec.SSH.PrivateKeyPath = "/root/.ssh/id_ed25519"
	assert.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	cfg := &NodeConfig{
		Metadata: MetadataSpec{Name: "master-1"},
		Spec:     NodeSpec{Role: RoleMaster},
	}
	cfg.SetDefaults()

	assert.Equal(t, DefaultKubeVersion, cfg.Spec.KubernetesVersion)
	assert.Equal(t, DefaultPodCIDR, cfg.Spec.PodCIDR)
	assert.Equal(t, DefaultServiceCIDR, cfg.Spec.ServiceCIDR)
	assert.Equal(t, DefaultMaxAttempts, cfg.Spec.MaxAttempts)
	assert.NotEmpty(t, cfg.Spec.StateDir)
}

func TestSetDefaults_WorkerGetsNoPodCIDR(t *testing.T) {
	cfg := validWorker()
	assert.Empty(t, cfg.Spec.PodCIDR)
}

func TestHostID(t *testing.T) {
	cfg := validMaster()
	assert.Equal(t, "master-1", cfg.HostID())

	cfg.Metadata.Name = ""
	cfg.Spec.SSH = &SSHSpec{Address: "10.1.2.3"}
	assert.Equal(t, "10.1.2.3", cfg.HostID())

	cfg.Spec.SSH = nil
	assert.Equal(t, "localhost", cfg.HostID())
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	yamlDoc := `
apiVersion: nodeforge.io/v1alpha1
kind: Node
metadata:
  name: master-1
spec:
  role: master
  podCIDR: 192.168.0.0/16
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RoleMaster, cfg.Spec.Role)
	assert.Equal(t, "192.168.0.0/16", cfg.Spec.PodCIDR)
	assert.Equal(t, DefaultMaxAttempts, cfg.Spec.MaxAttempts)
}

func TestLoad_MissingName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: Node\nspec:\n  role: master\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata.name")
}

func TestLoad_WrongKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: Cluster\nmetadata:\n  name: x\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
