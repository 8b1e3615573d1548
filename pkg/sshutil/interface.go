package sshutil

import "context"

// RemoteClient is the subset of Client used by callers that run commands and
// upload trees. Both the real Client and the mock in sshutil/testing satisfy it.
type RemoteClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// Upload copies localPath into remoteParent, landing at
	// remoteParent/<basename of localPath>.
	Upload(ctx context.Context, localPath, remoteParent string) error

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

var _ RemoteClient = (*Client)(nil)
