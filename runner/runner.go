// Package runner provides a thin command layer over a connector.Connection,
// adding sudo wrapping and file delivery used by host capabilities.
package runner

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mensylisir/nodeforge/connector"
)

// Runner executes shell commands on one target host.
type Runner interface {
	// Run executes a command as the connection user.
	// Returns stdout, stderr, exit code, and a transport-level error.
	Run(ctx context.Context, command string) (stdout string, stderr string, exitCode int, err error)

	// SudoRun executes a command with superuser privileges. Passwordless sudo
	// is assumed for remote targets.
	SudoRun(ctx context.Context, command string) (stdout string, stderr string, exitCode int, err error)

	// WriteFile places content at path on the target.
	WriteFile(ctx context.Context, path string, content []byte, mode os.FileMode) error
}

type cmdRunner struct {
	conn connector.Connection
	sudo bool
}

// NewCmdRunner creates a Runner over the given connection. When sudo is false,
// SudoRun degrades to Run; useful when the process already runs as root.
func NewCmdRunner(conn connector.Connection, sudo bool) Runner {
	return &cmdRunner{conn: conn, sudo: sudo}
}

// sudoPrefix wraps a command for execution under sudo, escaping backslashes
// and double quotes so the inner command survives the extra shell level.
func sudoPrefix(command string) string {
	escaped := strings.ReplaceAll(command, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return fmt.Sprintf(`sudo -E /bin/bash -c "%s"`, escaped)
}

func (r *cmdRunner) Run(ctx context.Context, command string) (string, string, int, error) {
	stdout, stderr, code, err := r.conn.Exec(ctx, command)
	return string(stdout), string(stderr), code, err
}

func (r *cmdRunner) SudoRun(ctx context.Context, command string) (string, string, int, error) {
	if r.sudo {
		command = sudoPrefix(command)
	}
	stdout, stderr, code, err := r.conn.Exec(ctx, command)
	return string(stdout), string(stderr), code, err
}

func (r *cmdRunner) WriteFile(ctx context.Context, path string, content []byte, mode os.FileMode) error {
	return r.conn.WriteFile(ctx, path, content, mode)
}
