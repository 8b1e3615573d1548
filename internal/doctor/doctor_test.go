package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rileyhilliard/shipr/internal/config"
	"github.com/rileyhilliard/shipr/internal/remote"
	remotetesting "github.com/rileyhilliard/shipr/internal/remote/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStatus_String(t *testing.T) {
	assert.Equal(t, "pass", StatusPass.String())
	assert.Equal(t, "warn", StatusWarn.String())
	assert.Equal(t, "fail", StatusFail.String())
	assert.Equal(t, "unknown", CheckStatus(99).String())
}

// mockCheck is a test implementation of Check.
type mockCheck struct {
	name     string
	results  []CheckResult
	runs     int
	fixErr   error
	fixCalls int
}

func (m *mockCheck) Name() string     { return m.name }
func (m *mockCheck) Category() string { return "TEST" }
func (m *mockCheck) Run() CheckResult {
	r := m.results[min(m.runs, len(m.results)-1)]
	m.runs++
	return r
}
func (m *mockCheck) Fix() error {
	m.fixCalls++
	return m.fixErr
}

func TestRun_KeepsOrder(t *testing.T) {
	for _, workers := range []int{0, 1, 2, 10} {
		checks := []Check{
			&mockCheck{name: "a", results: []CheckResult{{Name: "a", Status: StatusPass}}},
			&mockCheck{name: "b", results: []CheckResult{{Name: "b", Status: StatusWarn}}},
			&mockCheck{name: "c", results: []CheckResult{{Name: "c", Status: StatusFail}}},
		}

		results := Run(checks, workers)
		require.Len(t, results, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].Name, results[1].Name, results[2].Name}, "workers=%d", workers)
	}

	assert.Empty(t, Run(nil, 4))
}

func TestTally(t *testing.T) {
	pass := Count([]CheckResult{{Status: StatusPass}, {Status: StatusPass, Fixable: true}})
	assert.Equal(t, Tally{Pass: 2}, pass)
	assert.Equal(t, "Everything looks good", pass.Summary())
	assert.True(t, pass.Healthy())

	mixed := Count([]CheckResult{{Status: StatusPass}, {Status: StatusWarn, Fixable: true}, {Status: StatusFail}})
	assert.Equal(t, Tally{Pass: 1, Warn: 1, Fail: 1, Fixable: 1}, mixed)
	assert.Equal(t, "2 issues found", mixed.Summary())
	assert.False(t, mixed.Healthy())

	one := Count([]CheckResult{{Status: StatusWarn}})
	assert.Equal(t, "1 issue found", one.Summary())
	assert.True(t, one.Healthy())
}

func TestFixAll(t *testing.T) {
	fixable := &mockCheck{name: "fixable", results: []CheckResult{
		{Status: StatusWarn, Fixable: true},
		{Status: StatusPass},
	}}
	broken := &mockCheck{name: "broken", fixErr: errors.New("nope"), results: []CheckResult{
		{Status: StatusFail, Fixable: true},
	}}
	manual := &mockCheck{name: "manual", results: []CheckResult{{Status: StatusFail}}}

	checks := []Check{fixable, broken, manual}
	results := Run(checks, 1)
	assert.Equal(t, 2, Count(results).Fixable)

	fixed, errs := FixAll(checks, results)
	assert.Equal(t, StatusPass, fixed[0].Status)
	assert.Equal(t, StatusFail, fixed[1].Status)
	assert.Equal(t, 0, manual.fixCalls)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken: nope")
}

func TestToolCheck(t *testing.T) {
	found := &ToolCheck{Tool: "ssh", LookPath: func(s string) (string, error) { return "/usr/bin/" + s, nil }}
	r := found.Run()
	assert.Equal(t, "tool_ssh", r.Name)
	assert.Equal(t, StatusPass, r.Status)
	assert.Contains(t, r.Message, "/usr/bin/ssh")

	missing := &ToolCheck{
		Tool:       "gh",
		Binary:     "/opt/gh",
		Suggestion: "install it",
		LookPath:   func(string) (string, error) { return "", errors.New("not found") },
	}
	r = missing.Run()
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "/opt/gh")
	assert.Equal(t, "install it", r.Suggestion)

	optional := &ToolCheck{
		Tool:     "ssh-copy-id",
		Optional: true,
		LookPath: func(string) (string, error) { return "", errors.New("not found") },
	}
	assert.Equal(t, StatusWarn, optional.Run().Status)
}

type fakeAuth struct{ err error }

func (f fakeAuth) AuthStatus(context.Context) error { return f.err }

func TestGhAuthCheck(t *testing.T) {
	assert.Equal(t, StatusPass, (&GhAuthCheck{Auth: fakeAuth{}}).Run().Status)

	r := (&GhAuthCheck{Auth: fakeAuth{err: errors.New("not logged in")}}).Run()
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Suggestion, "gh auth login")
}

type fakeKeys []string

func (f fakeKeys) List() ([]string, error) { return f, nil }

func TestKeyDirCheck(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits")
	}

	t.Run("missing", func(t *testing.T) {
		r := (&KeyDirCheck{Dir: filepath.Join(t.TempDir(), "nope")}).Run()
		assert.Equal(t, StatusWarn, r.Status)
	})

	t.Run("private", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Chmod(dir, 0o700))
		r := (&KeyDirCheck{Dir: dir, Keys: fakeKeys{"a", "b"}}).Run()
		assert.Equal(t, StatusPass, r.Status)
		assert.Contains(t, r.Message, "2 keys")
	})

	t.Run("open and fixed", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Chmod(dir, 0o755))
		c := &KeyDirCheck{Dir: dir}

		r := c.Run()
		assert.Equal(t, StatusWarn, r.Status)
		assert.True(t, r.Fixable)
		assert.Contains(t, r.Message, "0755")

		require.NoError(t, c.Fix())
		assert.Equal(t, StatusPass, c.Run().Status)
	})

	t.Run("file", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(f, nil, 0o600))
		assert.Equal(t, StatusFail, (&KeyDirCheck{Dir: f}).Run().Status)
	})
}

func TestTargetCheck(t *testing.T) {
	target := remote.Target{Host: "10.0.0.5", Port: 22, User: "deploy", KeyName: "prod"}

	ok := remotetesting.NewFakeRemote()
	r := (&TargetCheck{TargetName: "prod", Target: target, Exec: ok}).Run()
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "target_prod", r.Name)
	assert.Equal(t, []string{"true"}, ok.Commands())

	rejected := remotetesting.NewFakeRemote()
	rejected.ExecFunc = func(remote.Target, string) remote.Result {
		return remote.Result{Status: remote.StatusConnectionFailed, Stderr: "Permission denied (publickey).", ExitCode: 255}
	}
	r = (&TargetCheck{TargetName: "prod", Target: target, Exec: rejected}).Run()
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "Permission denied")
	assert.Contains(t, r.Suggestion, "authorized_keys")
}

func TestSuite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Targets = map[string]config.Target{
		"staging": {Host: "b", Port: 22, User: "u", Key: "k"},
		"prod":    {Host: "a", Port: 22, User: "u", Key: "k"},
	}

	names := func(checks []Check) []string {
		var out []string
		for _, c := range checks {
			out = append(out, c.Name())
		}
		return out
	}

	all := Suite(SuiteOptions{Config: cfg, Auth: fakeAuth{}, Remote: remotetesting.NewFakeRemote()})
	assert.Equal(t, []string{
		"tool_ssh", "tool_scp", "tool_ssh-keygen", "tool_gh", "tool_ssh-copy-id", "gh_auth", "key_dir",
		"target_prod", "target_staging",
	}, names(all))

	cfg.Keys.Generator = config.GeneratorNative
	minimal := Suite(SuiteOptions{Config: cfg})
	assert.Equal(t, []string{"tool_ssh", "tool_scp", "tool_gh", "tool_ssh-copy-id", "key_dir"}, names(minimal))
}
