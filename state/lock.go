package state

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/file"
)

// ErrLocked is returned when another process already holds the host lock.
var ErrLocked = fmt.Errorf("host is locked by another provisioning run")

// HostLock is an advisory single-writer lock keyed by host identity. Only one
// orchestrator may drive steps against a host at a time; readers (status
// reporting) do not take it.
type HostLock struct {
	f    *os.File
	path string
}

// AcquireHostLock takes the advisory lock for hostID under dir. The lock is a
// kernel flock on a persistent file, so it is released automatically when the
// owning process dies and two racing acquirers can never both win. The owning
// pid is written into the file for diagnostics only.
func AcquireHostLock(dir, hostID string) (*HostLock, error) {
	if hostID == "" {
		return nil, fmt.Errorf("host identity cannot be empty")
	}
	if err := file.CreateDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, sanitizeHostID(hostID)+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, common.FileMode0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	if err := f.Truncate(0); err == nil {
		_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	return &HostLock{f: f, path: path}, nil
}

// Release drops the lock. The file stays on disk; removing it would let a
// third process lock a fresh inode while a second still holds the old one.
// Safe to call once per acquired lock.
func (l *HostLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// Path returns the lock file location, mainly for diagnostics.
func (l *HostLock) Path() string {
	return l.path
}
