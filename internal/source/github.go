package source

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/shipr/internal/logger"
	"github.com/rileyhilliard/shipr/internal/util"
)

// Repo is a repository as listed by `gh repo list`.
type Repo struct {
	Name            string    `json:"name"`
	NameWithOwner   string    `json:"nameWithOwner"`
	Description     string    `json:"description"`
	URL             string    `json:"url"`
	StargazerCount  int       `json:"stargazerCount"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Visibility      string    `json:"visibility"`
	PrimaryLanguage struct {
		Name string `json:"name"`
	} `json:"primaryLanguage"`
}

const repoFields = "name,nameWithOwner,description,url,stargazerCount,updatedAt,visibility,primaryLanguage"

// wellKnownPaths are checked when gh isn't on PATH, which happens when shipr
// is started from a GUI launcher with a minimal environment.
var wellKnownPaths = map[string][]string{
	"windows": {
		`C:\Program Files\GitHub CLI\gh.exe`,
		`C:\Program Files (x86)\GitHub CLI\gh.exe`,
	},
	"default": {
		"/usr/local/bin/gh",
		"/opt/homebrew/bin/gh",
		"/usr/bin/gh",
		"/home/linuxbrew/.linuxbrew/bin/gh",
	},
}

// ResolveBinary picks the gh executable once at startup: the configured
// value, then PATH, then well-known install locations, then plain "gh".
func ResolveBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if p, err := exec.LookPath("gh"); err == nil {
		return p
	}

	candidates := wellKnownPaths["default"]
	if runtime.GOOS == "windows" {
		candidates = wellKnownPaths["windows"]
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return "gh"
}

// GitHub is a Source backed by the gh CLI.
type GitHub struct {
	Binary string
	log    logger.Logger
}

var _ Source = (*GitHub)(nil)

// NewGitHub returns a GitHub source using the given gh binary.
func NewGitHub(binary string, log logger.Logger) *GitHub {
	if binary == "" {
		binary = "gh"
	}
	return &GitHub{Binary: binary, log: logger.OrDefault(log)}
}

// Clone runs `gh repo clone <repo> <dest>`.
func (g *GitHub) Clone(ctx context.Context, repo, dest string) error {
	_, err := g.run(ctx, "repo", "clone", repo, dest)
	return err
}

// Variables runs `gh variable list`. Output that isn't a JSON array of
// {name, value} objects yields no variables rather than an error.
func (g *GitHub) Variables(ctx context.Context, repo, scope string) ([]Variable, error) {
	args := []string{"variable", "list", "-R", repo}
	if scope != "" {
		args = append(args, "-e", scope)
	}
	args = append(args, "--json", "name,value")

	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var vars []Variable
	if err := json.Unmarshal(out, &vars); err != nil {
		g.log.Warn("ignoring unparseable variable list for %s: %v", repo, err)
		return []Variable{}, nil
	}
	if vars == nil {
		vars = []Variable{}
	}
	return vars, nil
}

// Version returns the first line of `gh --version`.
func (g *GitHub) Version(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return line, nil
}

// AuthStatus returns nil when gh is logged in.
func (g *GitHub) AuthStatus(ctx context.Context) error {
	_, err := g.run(ctx, "auth", "status")
	return err
}

// Repos lists up to limit repositories of the authenticated user.
func (g *GitHub) Repos(ctx context.Context, limit int) ([]Repo, error) {
	if limit <= 0 {
		limit = 30
	}
	out, err := g.run(ctx, "repo", "list", "--json", repoFields, "--limit", strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}

	var repos []Repo
	if err := json.Unmarshal(out, &repos); err != nil {
		return nil, &CommandError{Args: []string{"repo", "list"}, Err: err}
	}
	return repos, nil
}

func (g *GitHub) run(ctx context.Context, args ...string) ([]byte, error) {
	g.log.Debug("%s", util.ShellJoin(append([]string{g.Binary}, args...)))

	cmd := exec.CommandContext(ctx, g.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cerr := &CommandError{Args: args, Stderr: stderr.String(), ExitCode: -1, Err: err}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		}
		return nil, cerr
	}
	return stdout.Bytes(), nil
}
