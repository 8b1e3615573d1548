package remote

import (
	"context"
	"time"

	"github.com/rileyhilliard/shipr/internal/logger"
	"github.com/rileyhilliard/shipr/pkg/sshutil"
)

// DialFunc opens a connection to t authenticated with the key at keyPath.
type DialFunc func(ctx context.Context, t Target, keyPath string) (sshutil.RemoteClient, error)

// NativeOptions configures a Native transport.
type NativeOptions struct {
	ConnectTimeout        time.Duration
	StrictHostKeyChecking bool

	// Dial replaces sshutil.Dial, mainly for tests.
	Dial DialFunc
}

// Native runs commands and copies with the built-in SSH client. Each call
// opens and closes its own connection.
type Native struct {
	keys KeyResolver
	dial DialFunc
	log  logger.Logger
}

var _ Remote = (*Native)(nil)

// NewNative returns a Native transport.
func NewNative(keys KeyResolver, opts NativeOptions, log logger.Logger) *Native {
	dial := opts.Dial
	if dial == nil {
		dial = func(ctx context.Context, t Target, keyPath string) (sshutil.RemoteClient, error) {
			return sshutil.Dial(ctx, t.Host, sshutil.Options{
				User:                  t.User,
				Port:                  t.port(),
				KeyPath:               keyPath,
				Timeout:               opts.ConnectTimeout,
				StrictHostKeyChecking: opts.StrictHostKeyChecking,
			})
		}
	}
	return &Native{
		keys: keys,
		dial: dial,
		log:  logger.OrDefault(log),
	}
}

// Execute runs command on t.
func (n *Native) Execute(ctx context.Context, t Target, command string) (Result, error) {
	keyPath, err := n.keys.PrivatePath(t.KeyName)
	if err != nil {
		return Result{}, err
	}

	n.log.Debug("ssh(native) %s: %s", t, command)
	client, err := n.dial(ctx, t, keyPath)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{Status: StatusConnectionFailed, Stderr: err.Error(), ExitCode: -1}, nil
	}
	defer client.Close()

	stdout, stderr, code, err := client.Exec(ctx, command)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	res := Result{Stdout: string(stdout), Stderr: string(stderr), ExitCode: code}
	switch {
	case err != nil:
		res.Status = StatusConnectionFailed
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	case code != 0:
		res.Status = StatusCommandFailed
	default:
		res.Status = StatusOK
	}

	n.log.Debug("ssh(native) %s: %s (exit %d)", t, res.Status, res.ExitCode)
	return res, nil
}

// Copy uploads localPath into remoteParent on t over SFTP.
func (n *Native) Copy(ctx context.Context, t Target, localPath, remoteParent string) error {
	keyPath, err := n.keys.PrivatePath(t.KeyName)
	if err != nil {
		return err
	}

	n.log.Debug("sftp %s -> %s:%s", localPath, t, remoteParent)
	client, err := n.dial(ctx, t, keyPath)
	if err != nil {
		return &TransferError{Target: t, LocalPath: localPath, RemoteParent: remoteParent, ExitCode: -1, Err: err}
	}
	defer client.Close()

	if err := client.Upload(ctx, localPath, remoteParent); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransferError{Target: t, LocalPath: localPath, RemoteParent: remoteParent, ExitCode: -1, Err: err}
	}
	return nil
}
