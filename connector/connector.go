// Package connector abstracts command execution and file delivery on the
// target host, local or remote over SSH.
package connector

import (
	"context"
	"os"
	"time"

	"github.com/mensylisir/nodeforge/common"
)

// Connection executes commands and writes files on one target host. It is the
// lowest layer of the executor boundary: capabilities compose shell commands,
// a Connection carries them out.
type Connection interface {
	// Exec runs a command through the target's shell. A non-zero exit code is
	// not an error; err is reserved for transport-level failures.
	Exec(ctx context.Context, cmd string) (stdout []byte, stderr []byte, exitCode int, err error)

	// WriteFile places content at path on the target, creating parent
	// directories as needed.
	WriteFile(ctx context.Context, path string, content []byte, mode os.FileMode) error

	Close() error
}

// Config describes how to reach a remote host.
type Config struct {
	Address        string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	// ConnectTimeout bounds the initial dial. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

// DefaultConnectTimeout is applied when Config.ConnectTimeout is zero.
const DefaultConnectTimeout = 30 * time.Second

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = common.DefaultSSHPort
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}
