package connector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalConnectionExec(t *testing.T) {
	conn := NewLocalConnection()
	defer conn.Close()

	stdout, stderr, code, err := conn.Exec(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello", strings.TrimSpace(string(stdout)))
	assert.Empty(t, stderr)
}

func TestLocalConnectionExecNonZeroExit(t *testing.T) {
	conn := NewLocalConnection()
	defer conn.Close()

	_, _, code, err := conn.Exec(context.Background(), "exit 7")
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestLocalConnectionExecStderr(t *testing.T) {
	conn := NewLocalConnection()
	defer conn.Close()

	_, stderr, code, err := conn.Exec(context.Background(), "echo oops 1>&2; exit 1")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Equal(t, "oops", strings.TrimSpace(string(stderr)))
}

func TestLocalConnectionExecCancelled(t *testing.T) {
	conn := NewLocalConnection()
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, _, err := conn.Exec(ctx, "sleep 10")
	assert.Error(t, err)
}

func TestLocalConnectionWriteFile(t *testing.T) {
	conn := NewLocalConnection()
	defer conn.Close()

	path := filepath.Join(t.TempDir(), "sub", "conf.yaml")
	err := conn.WriteFile(context.Background(), path, []byte("key: value\n"), 0o600)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "key: value\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
