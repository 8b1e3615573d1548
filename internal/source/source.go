// Package source fetches project trees and their configuration variables
// through the GitHub CLI.
package source

import (
	"context"
	"fmt"
	"strings"
)

// Variable is one configuration key/value pair.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Source fetches a project's working tree and variables.
type Source interface {
	// Clone populates dest with a working tree of repo.
	Clone(ctx context.Context, repo, dest string) error

	// Variables lists repo's variables. An empty scope means project-level
	// variables; otherwise the named scope's.
	Variables(ctx context.Context, repo, scope string) ([]Variable, error)
}

// CommandError means the source tool exited non-zero or couldn't start.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("gh %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ShortName is the last path segment of a repo identifier, "app" when empty.
func ShortName(repo string) string {
	repo = strings.TrimRight(repo, "/")
	if i := strings.LastIndex(repo, "/"); i != -1 {
		repo = repo[i+1:]
	}
	if repo == "" {
		return "app"
	}
	return repo
}
