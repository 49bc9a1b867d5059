package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireHostLock_Exclusive(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireHostLock(dir, "node-1")
	require.NoError(t, err)
	defer lock.Release()

	_, err = AcquireHostLock(dir, "node-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	// A different host is unaffected.
	other, err := AcquireHostLock(dir, "node-2")
	require.NoError(t, err)
	require.NoError(t, other.Release())
}

func TestAcquireHostLock_ReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireHostLock(dir, "node-1")
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	again, err := AcquireHostLock(dir, "node-1")
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquireHostLock_ReusesFileFromDeadOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node-1.lock")

	// A crashed run leaves its lock file behind, but the kernel dropped the
	// flock with the process, so the file is immediately lockable again.
	require.NoError(t, os.WriteFile(path, []byte("99999\n"), 0600))

	lock, err := AcquireHostLock(dir, "node-1")
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestHostLock_FilePersistsAfterRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireHostLock(dir, "node-1")
	require.NoError(t, err)
	path := lock.Path()
	require.NoError(t, lock.Release())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestAcquireHostLock_EmptyHost(t *testing.T) {
	_, err := AcquireHostLock(t.TempDir(), "")
	assert.Error(t, err)
}

func TestHostLock_ReleaseTwice(t *testing.T) {
	lock, err := AcquireHostLock(t.TempDir(), "node-1")
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	assert.NoError(t, lock.Release())
}
