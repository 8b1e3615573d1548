// Package testing provides an in-memory sshutil.RemoteClient for tests.
package testing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/rileyhilliard/shipr/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// Upload records one Upload call.
type Upload struct {
	LocalPath    string
	RemoteParent string
}

type patternResponse struct {
	re   *regexp.Regexp
	resp CommandResponse
}

// MockClient simulates an SSH connection for testing. Commands are matched
// against exact strings first, then regex patterns in registration order.
// Unmatched commands succeed with empty output.
type MockClient struct {
	mu        sync.Mutex
	host      string
	address   string
	closed    bool
	commands  map[string]CommandResponse
	patterns  []patternResponse
	executed  []string
	uploads   []Upload
	UploadErr error
}

var _ sshutil.RemoteClient = (*MockClient)(nil)

// NewMockClient creates a new mock SSH client.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:     host,
		address:  host + ":22",
		commands: make(map[string]CommandResponse),
	}
}

// SetCommandResponse registers a response for an exact command.
func (m *MockClient) SetCommandResponse(cmd string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[cmd] = resp
}

// SetPatternResponse registers a response for commands matching pattern.
func (m *MockClient) SetPatternResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, patternResponse{re: regexp.MustCompile(pattern), resp: resp})
}

// Exec returns the registered response for cmd.
func (m *MockClient) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}
	if ctx.Err() != nil {
		return nil, nil, -1, ctx.Err()
	}
	m.executed = append(m.executed, cmd)

	if resp, ok := m.commands[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}
	for _, p := range m.patterns {
		if p.re.MatchString(cmd) {
			return p.resp.Stdout, p.resp.Stderr, p.resp.ExitCode, p.resp.Error
		}
	}
	return nil, nil, 0, nil
}

// Upload records the call and returns UploadErr.
func (m *MockClient) Upload(ctx context.Context, localPath, remoteParent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("connection closed")
	}
	if m.UploadErr != nil {
		return fmt.Errorf("upload %s: %w", localPath, m.UploadErr)
	}
	m.uploads = append(m.uploads, Upload{LocalPath: localPath, RemoteParent: remoteParent})
	return nil
}

// Close marks the client closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host passed to NewMockClient.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns host:22.
func (m *MockClient) GetAddress() string {
	return m.address
}

// Executed returns the commands run so far.
func (m *MockClient) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executed...)
}

// Uploads returns the uploads recorded so far.
func (m *MockClient) Uploads() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Upload(nil), m.uploads...)
}
