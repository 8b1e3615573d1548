// Package testing provides test doubles for the remote package.
package testing

import (
	"context"
	"sync"

	"github.com/rileyhilliard/shipr/internal/remote"
)

// ExecCall records a call to Execute.
type ExecCall struct {
	Target  remote.Target
	Command string
}

// CopyCall records a call to Copy.
type CopyCall struct {
	Target       remote.Target
	LocalPath    string
	RemoteParent string
}

// FakeRemote is an in-memory remote.Remote. It records calls and returns
// configured results. Commands succeed with empty output by default.
type FakeRemote struct {
	mu sync.Mutex

	// Keys, when set, is consulted before every call like the real transports.
	Keys remote.KeyResolver

	// ExecFunc computes the result for a command. Nil means StatusOK.
	ExecFunc func(t remote.Target, command string) remote.Result

	// CopyFunc runs on Copy. Nil means success.
	CopyFunc func(t remote.Target, localPath, remoteParent string) error

	ExecCalls []ExecCall
	CopyCalls []CopyCall
}

var _ remote.Remote = (*FakeRemote)(nil)

// NewFakeRemote creates a fake that succeeds by default.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{}
}

// Execute records the call and returns ExecFunc's result.
func (f *FakeRemote) Execute(ctx context.Context, t remote.Target, command string) (remote.Result, error) {
	if f.Keys != nil {
		if _, err := f.Keys.PrivatePath(t.KeyName); err != nil {
			return remote.Result{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return remote.Result{}, err
	}

	f.mu.Lock()
	f.ExecCalls = append(f.ExecCalls, ExecCall{Target: t, Command: command})
	fn := f.ExecFunc
	f.mu.Unlock()

	if fn == nil {
		return remote.Result{Status: remote.StatusOK}, nil
	}
	return fn(t, command), nil
}

// Copy records the call and returns CopyFunc's error.
func (f *FakeRemote) Copy(ctx context.Context, t remote.Target, localPath, remoteParent string) error {
	if f.Keys != nil {
		if _, err := f.Keys.PrivatePath(t.KeyName); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.CopyCalls = append(f.CopyCalls, CopyCall{Target: t, LocalPath: localPath, RemoteParent: remoteParent})
	fn := f.CopyFunc
	f.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(t, localPath, remoteParent)
}

// Commands returns the executed commands in order.
func (f *FakeRemote) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := make([]string, 0, len(f.ExecCalls))
	for _, c := range f.ExecCalls {
		cmds = append(cmds, c.Command)
	}
	return cmds
}

// OK is a successful result with stdout.
func OK(stdout string) remote.Result {
	return remote.Result{Status: remote.StatusOK, Stdout: stdout}
}

// Failed is a failed command result.
func Failed(stderr string, code int) remote.Result {
	return remote.Result{Status: remote.StatusCommandFailed, Stderr: stderr, ExitCode: code}
}
