package runner

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConnection struct {
	commands []string
	stdout   string
	exitCode int
	written  map[string][]byte
}

func (c *recordingConnection) Exec(_ context.Context, cmd string) ([]byte, []byte, int, error) {
	c.commands = append(c.commands, cmd)
	return []byte(c.stdout), nil, c.exitCode, nil
}

func (c *recordingConnection) WriteFile(_ context.Context, path string, content []byte, _ os.FileMode) error {
	if c.written == nil {
		c.written = make(map[string][]byte)
	}
	c.written[path] = content
	return nil
}

func (c *recordingConnection) Close() error { return nil }

func TestCmdRunnerRun(t *testing.T) {
	conn := &recordingConnection{stdout: "ok", exitCode: 0}
	r := NewCmdRunner(conn, true)

	stdout, _, code, err := r.Run(context.Background(), "uname -m")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "ok", stdout)
	require.Len(t, conn.commands, 1)
	assert.Equal(t, "uname -m", conn.commands[0])
}

func TestCmdRunnerSudoRunWrapsCommand(t *testing.T) {
	conn := &recordingConnection{}
	r := NewCmdRunner(conn, true)

	_, _, _, err := r.SudoRun(context.Background(), `swapoff -a`)
	require.NoError(t, err)
	require.Len(t, conn.commands, 1)
	assert.Equal(t, `sudo -E /bin/bash -c "swapoff -a"`, conn.commands[0])
}

func TestCmdRunnerSudoRunEscapesQuotes(t *testing.T) {
	conn := &recordingConnection{}
	r := NewCmdRunner(conn, true)

	_, _, _, err := r.SudoRun(context.Background(), `grep "swap" /etc/fstab`)
	require.NoError(t, err)
	require.Len(t, conn.commands, 1)
	assert.Equal(t, `sudo -E /bin/bash -c "grep \"swap\" /etc/fstab"`, conn.commands[0])
}

func TestCmdRunnerSudoRunWithoutSudo(t *testing.T) {
	conn := &recordingConnection{}
	r := NewCmdRunner(conn, false)

	_, _, _, err := r.SudoRun(context.Background(), "swapoff -a")
	require.NoError(t, err)
	require.Len(t, conn.commands, 1)
	assert.Equal(t, "swapoff -a", conn.commands[0])
}

func TestCmdRunnerWriteFile(t *testing.T) {
	conn := &recordingConnection{}
	r := NewCmdRunner(conn, true)

	err := r.WriteFile(context.Background(), "/etc/sysctl.d/99-k8s.conf", []byte("net.ipv4.ip_forward = 1\n"), 0o644)
	require.NoError(t, err)
	assert.Equal(t, []byte("net.ipv4.ip_forward = 1\n"), conn.written["/etc/sysctl.d/99-k8s.conf"])
}
