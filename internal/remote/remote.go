// Package remote runs commands on and copies trees to remote hosts.
//
// Remote command failures are values, not errors: Execute returns a Result
// whose Status says whether the command ran, failed, or never reached the
// host. Errors are reserved for local preconditions (a missing key) and
// cancellation.
package remote

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Target identifies where a command runs.
type Target struct {
	Host    string
	Port    int
	User    string
	KeyName string
}

// String returns user@host:port.
func (t Target) String() string {
	return fmt.Sprintf("%s@%s", t.User, net.JoinHostPort(t.Host, strconv.Itoa(t.port())))
}

func (t Target) port() int {
	if t.Port <= 0 {
		return 22
	}
	return t.Port
}

// Status classifies a Result.
type Status int

const (
	// StatusOK means the command ran and exited 0.
	StatusOK Status = iota
	// StatusCommandFailed means the command ran and exited non-zero.
	StatusCommandFailed
	// StatusConnectionFailed means the command never ran: the host was
	// unreachable, rejected the key, or the client could not start.
	StatusConnectionFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCommandFailed:
		return "command failed"
	case StatusConnectionFailed:
		return "connection failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one remote command.
type Result struct {
	Status   Status
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command ran and succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Output returns the most useful text for the result. On success that is
// stdout, or stderr when stdout is empty. On failure it is stderr, then
// stdout, then a generic message, so it is never empty.
func (r Result) Output() string {
	if r.OK() {
		if r.Stdout != "" {
			return r.Stdout
		}
		return r.Stderr
	}

	if strings.TrimSpace(r.Stderr) != "" {
		return r.Stderr
	}
	if strings.TrimSpace(r.Stdout) != "" {
		return r.Stdout
	}
	if r.Status == StatusConnectionFailed {
		return "could not connect to remote host"
	}
	return fmt.Sprintf("remote command failed with exit code %d", r.ExitCode)
}

// Executor runs one command on a remote host.
type Executor interface {
	Execute(ctx context.Context, t Target, command string) (Result, error)
}

// Transferer copies a local tree into a remote directory.
type Transferer interface {
	Copy(ctx context.Context, t Target, localPath, remoteParent string) error
}

// Remote is both an Executor and a Transferer.
type Remote interface {
	Executor
	Transferer
}

// KeyResolver maps a key name to its private key path. *keystore.Store
// satisfies it and returns *keystore.KeyNotFoundError for missing keys.
type KeyResolver interface {
	PrivatePath(name string) (string, error)
}

// TransferError means a copy to the remote host failed.
type TransferError struct {
	Target       Target
	LocalPath    string
	RemoteParent string
	Output       string
	ExitCode     int
	Err          error
}

func (e *TransferError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" && e.Err != nil {
		out = e.Err.Error()
	}
	if out == "" {
		out = fmt.Sprintf("exit code %d", e.ExitCode)
	}
	return fmt.Sprintf("transfer of %s to %s:%s failed: %s", e.LocalPath, e.Target, e.RemoteParent, out)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
