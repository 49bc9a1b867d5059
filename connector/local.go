package connector

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/mensylisir/nodeforge/file"
)

// localConnection implements Connection against the machine the process runs on.
type localConnection struct{}

// NewLocalConnection creates a Connection for local operations.
func NewLocalConnection() Connection {
	return &localConnection{}
}

func (l *localConnection) Exec(ctx context.Context, cmd string) ([]byte, []byte, int, error) {
	command := exec.CommandContext(ctx, "/bin/sh", "-c", cmd)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Non-zero exit is an outcome, not a transport failure.
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	}
	return stdout.Bytes(), stderr.Bytes(), -1, errors.Wrapf(err, "failed to run command %q", cmd)
}

func (l *localConnection) WriteFile(ctx context.Context, path string, content []byte, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := file.WriteFile(path, content); err != nil {
		return err
	}
	return os.Chmod(path, mode)
}

func (l *localConnection) Close() error {
	return nil
}
