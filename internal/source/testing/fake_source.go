// Package testing provides test doubles for the source package.
package testing

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rileyhilliard/shipr/internal/source"
)

// VariablesCall records a call to Variables.
type VariablesCall struct {
	Repo  string
	Scope string
}

// FakeSource is an in-memory source.Source. Clone writes Files into dest.
type FakeSource struct {
	mu sync.Mutex

	// Files maps relative paths to content written on Clone.
	Files map[string]string
	// CloneErr fails Clone when set.
	CloneErr error

	// Vars maps scope ("" for project level) to its variables.
	Vars map[string][]source.Variable
	// VarErrs maps scope to an error returned instead of variables.
	VarErrs map[string]error

	CloneCalls     []string
	VariablesCalls []VariablesCall
}

var _ source.Source = (*FakeSource)(nil)

// NewFakeSource returns a fake whose clone produces a one-file tree.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		Files:   map[string]string{"README.md": "demo\n"},
		Vars:    make(map[string][]source.Variable),
		VarErrs: make(map[string]error),
	}
}

// Clone writes Files under dest.
func (f *FakeSource) Clone(ctx context.Context, repo, dest string) error {
	f.mu.Lock()
	f.CloneCalls = append(f.CloneCalls, repo)
	files, cloneErr := f.Files, f.CloneErr
	f.mu.Unlock()

	if cloneErr != nil {
		return cloneErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for rel, content := range files {
		p := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Variables returns the configured variables for scope.
func (f *FakeSource) Variables(_ context.Context, repo, scope string) ([]source.Variable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VariablesCalls = append(f.VariablesCalls, VariablesCall{Repo: repo, Scope: scope})

	if err := f.VarErrs[scope]; err != nil {
		return nil, err
	}
	return append([]source.Variable(nil), f.Vars[scope]...), nil
}

// Calls returns a snapshot of the Variables calls.
func (f *FakeSource) Calls() []VariablesCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]VariablesCall(nil), f.VariablesCalls...)
}
