package connector

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// sshConnection implements Connection over an SSH transport, with SFTP for
// file delivery.
type sshConnection struct {
	mu         sync.Mutex
	sshclient  *ssh.Client
	sftpclient *sftp.Client
	cfg        Config
}

// NewSSHConnection dials the host described by cfg and returns a Connection.
func NewSSHConnection(cfg Config) (Connection, error) {
	cfg = cfg.withDefaults()
	if cfg.Address == "" {
		return nil, errors.New("ssh address cannot be empty")
	}
	if cfg.User == "" {
		return nil, errors.New("ssh user cannot be empty")
	}

	authMethods := make([]ssh.AuthMethod, 0, 2)
	if cfg.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read private key %s", cfg.PrivateKeyPath)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse private key %s", cfg.PrivateKeyPath)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}
	if len(authMethods) == 0 {
		return nil, errors.New("no ssh authentication method configured")
	}

	clientConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            authMethods,
		Timeout:         cfg.ConnectTimeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial ssh %s", addr)
	}

	return &sshConnection{sshclient: client, cfg: cfg}, nil
}

func (c *sshConnection) Exec(ctx context.Context, cmd string) ([]byte, []byte, int, error) {
	c.mu.Lock()
	client := c.sshclient
	c.mu.Unlock()
	if client == nil {
		return nil, nil, -1, errors.New("ssh connection is closed")
	}

	sess, err := client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.Wrap(err, "failed to create ssh session")
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		// The remote command is treated as non-interruptible; closing the
		// session is the best we can do.
		_ = sess.Close()
		<-done
		return stdout.Bytes(), stderr.Bytes(), -1, errors.Wrap(ctx.Err(), "ssh command cancelled")
	case err = <-done:
	}

	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitStatus(), nil
	}
	return stdout.Bytes(), stderr.Bytes(), -1, errors.Wrapf(err, "failed to run %q over ssh", cmd)
}

func (c *sshConnection) WriteFile(ctx context.Context, path string, content []byte, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := c.sftp()
	if err != nil {
		return err
	}

	if err := client.MkdirAll(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "failed to create remote directory for %s", path)
	}

	f, err := client.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create remote file %s", path)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write remote file %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close remote file %s", path)
	}
	if err := client.Chmod(path, mode); err != nil {
		return errors.Wrapf(err, "failed to chmod remote file %s", path)
	}
	return nil
}

// sftp lazily creates the SFTP client on first file operation.
func (c *sshConnection) sftp() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshclient == nil {
		return nil, errors.New("ssh connection is closed")
	}
	if c.sftpclient != nil {
		return c.sftpclient, nil
	}
	client, err := sftp.NewClient(c.sshclient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sftp client")
	}
	c.sftpclient = client
	return client, nil
}

func (c *sshConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if c.sftpclient != nil {
		if err := c.sftpclient.Close(); err != nil {
			firstErr = errors.Wrap(err, "failed to close sftp client")
		}
		c.sftpclient = nil
	}
	if c.sshclient != nil {
		if err := c.sshclient.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "failed to close ssh client")
		}
		c.sshclient = nil
	}
	return firstErr
}
