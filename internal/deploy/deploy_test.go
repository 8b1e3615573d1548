package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rileyhilliard/shipr/internal/keystore"
	"github.com/rileyhilliard/shipr/internal/lock"
	"github.com/rileyhilliard/shipr/internal/logger"
	"github.com/rileyhilliard/shipr/internal/remote"
	remotetesting "github.com/rileyhilliard/shipr/internal/remote/testing"
	"github.com/rileyhilliard/shipr/internal/source"
	sourcetesting "github.com/rileyhilliard/shipr/internal/source/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTarget = remote.Target{Host: "10.0.0.5", Port: 22, User: "deploy", KeyName: "prod"}

type fixture struct {
	remote  *remotetesting.FakeRemote
	source  *sourcetesting.FakeSource
	log     *logger.BufferLogger
	scratch string
	opts    Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		remote:  remotetesting.NewFakeRemote(),
		source:  sourcetesting.NewFakeSource(),
		log:     logger.NewBufferLogger(),
		scratch: filepath.Join(t.TempDir(), "scratch"),
	}
	f.opts = Options{
		Remote:     f.remote,
		Source:     f.source,
		ScratchDir: f.scratch,
		Log:        f.log,
	}
	return f
}

func (f *fixture) deployer() *Deployer {
	return New(f.opts)
}

// assertScratchEmpty checks that no workspace was left behind.
func assertScratchEmpty(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace should be removed")
}

// recordingObserver captures stage events.
type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) StageStarted(s Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, "start:"+string(s))
}

func (o *recordingObserver) StageFinished(s Stage, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "err"
	}
	o.events = append(o.events, fmt.Sprintf("finish:%s:%s", s, status))
}

func TestDeploy_CommandSequence(t *testing.T) {
	f := newFixture(t)
	f.remote.ExecFunc = func(_ remote.Target, cmd string) remote.Result {
		if strings.HasPrefix(cmd, "cd ") {
			return remotetesting.OK("hello\n")
		}
		return remotetesting.OK("")
	}

	res, err := f.deployer().Deploy(context.Background(), Request{
		Repo:    "acme/demo",
		Target:  testTarget,
		Command: "echo hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "demo", res.Project)
	assert.Equal(t, "deployments/demo", res.RemoteDir)
	assert.Equal(t, "hello\n", res.Output())
	assert.NotEmpty(t, res.ID)

	cmds := f.remote.Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, "mkdir -p 'deployments'", cmds[0])
	assert.Regexp(t, regexp.MustCompile(`^rm -rf 'deployments/demo' && mv 'deployments/demo-\d+' 'deployments/demo'$`), cmds[1])
	assert.Equal(t, "cd 'deployments/demo' && echo hello", cmds[2])

	require.Len(t, f.remote.CopyCalls, 1)
	assert.Equal(t, "deployments", f.remote.CopyCalls[0].RemoteParent)
	assert.Equal(t, f.scratch, filepath.Dir(f.remote.CopyCalls[0].LocalPath))
	assert.Contains(t, cmds[1], filepath.Base(f.remote.CopyCalls[0].LocalPath))

	assertScratchEmpty(t, f.scratch)
}

func TestDeploy_DefaultsAndCustomRoot(t *testing.T) {
	f := newFixture(t)
	f.opts.Root = "~/apps"
	f.opts.DefaultCommand = "./up.sh"

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/web", Target: testTarget})
	require.NoError(t, err)

	cmds := f.remote.Commands()
	assert.Equal(t, "mkdir -p ~/'apps'", cmds[0])
	assert.Equal(t, "cd ~/'apps/web' && ./up.sh", cmds[2])
}

func TestDeploy_DefaultLaunchCommand(t *testing.T) {
	f := newFixture(t)

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/web", Target: testTarget})
	require.NoError(t, err)
	assert.Equal(t, "cd 'deployments/web' && docker compose up -d", f.remote.Commands()[2])
}

func TestDeploy_ScopeOverridesProject(t *testing.T) {
	f := newFixture(t)
	f.source.Vars[""] = []source.Variable{{Name: "A", Value: "1"}, {Name: "B", Value: "b"}}
	f.source.Vars["production"] = []source.Variable{{Name: "A", Value: "2"}}

	var envContent string
	f.remote.CopyFunc = func(_ remote.Target, localPath, _ string) error {
		data, err := os.ReadFile(filepath.Join(localPath, ".env"))
		envContent = string(data)
		return err
	}

	res, err := f.deployer().Deploy(context.Background(), Request{
		Repo:   "acme/demo",
		Target: testTarget,
		Scope:  "production",
	})
	require.NoError(t, err)

	assert.Equal(t, "A=2\nB=b\n", envContent)
	assert.Equal(t, 2, res.Variables)
	assert.ElementsMatch(t, []sourcetesting.VariablesCall{
		{Repo: "acme/demo", Scope: ""},
		{Repo: "acme/demo", Scope: "production"},
	}, f.source.Calls())
}

func TestDeploy_NoScopeFetchesProjectOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	require.NoError(t, err)
	assert.Equal(t, []sourcetesting.VariablesCall{{Repo: "acme/demo", Scope: ""}}, f.source.Calls())
}

func TestDeploy_NoVariablesNoEnvFile(t *testing.T) {
	f := newFixture(t)

	var hasEnv bool
	f.remote.CopyFunc = func(_ remote.Target, localPath, _ string) error {
		_, err := os.Stat(filepath.Join(localPath, ".env"))
		hasEnv = err == nil
		return nil
	}

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	require.NoError(t, err)
	assert.False(t, hasEnv)
}

func TestDeploy_VariableFetchFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t)
	f.source.VarErrs[""] = errors.New("HTTP 403")
	f.source.Vars["staging"] = []source.Variable{{Name: "ONLY", Value: "scope"}}

	var envContent string
	f.remote.CopyFunc = func(_ remote.Target, localPath, _ string) error {
		data, _ := os.ReadFile(filepath.Join(localPath, ".env"))
		envContent = string(data)
		return nil
	}

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget, Scope: "staging"})
	require.NoError(t, err)
	assert.Equal(t, "ONLY=scope\n", envContent)
	assert.True(t, f.log.HasLevel("warn"))
}

func TestDeploy_MultilineVariablesAreSkipped(t *testing.T) {
	f := newFixture(t)
	f.source.Vars[""] = []source.Variable{
		{Name: "A", Value: "1"},
		{Name: "CERT", Value: "line one\nINJECTED=yes"},
	}

	var envContent string
	f.remote.CopyFunc = func(_ remote.Target, localPath, _ string) error {
		data, err := os.ReadFile(filepath.Join(localPath, ".env"))
		envContent = string(data)
		return err
	}

	res, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	require.NoError(t, err)
	assert.Equal(t, "A=1\n", envContent)
	assert.Equal(t, 1, res.Variables)
	assert.True(t, f.log.HasLevel("warn"))
}

func TestDeploy_CloneFailure(t *testing.T) {
	f := newFixture(t)
	f.source.CloneErr = errors.New("repository not found")

	res, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	require.Error(t, err)
	assert.Nil(t, res)

	var dfe *DeploymentFailedError
	require.ErrorAs(t, err, &dfe)
	assert.Equal(t, StageFetch, dfe.Stage)
	assert.Equal(t, "deployment failed: repository not found", err.Error())

	assert.Empty(t, f.remote.Commands(), "nothing runs remotely after a failed fetch")
	assertScratchEmpty(t, f.scratch)
}

func TestDeploy_RemoteStepFailuresAbort(t *testing.T) {
	tests := []struct {
		name      string
		failOn    string
		wantStage Stage
		wantCmds  int
	}{
		{"prepare", "mkdir -p", StagePrepare, 1},
		// the swap failure is followed by removal of the staged copy
		{"swap", "rm -rf 'deployments/demo' &&", StageSwap, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.remote.ExecFunc = func(_ remote.Target, cmd string) remote.Result {
				if strings.HasPrefix(cmd, tt.failOn) {
					return remotetesting.Failed("Permission denied", 1)
				}
				return remotetesting.OK("")
			}

			_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})

			var dfe *DeploymentFailedError
			require.ErrorAs(t, err, &dfe)
			assert.Equal(t, tt.wantStage, dfe.Stage)
			var rce *RemoteCommandError
			require.ErrorAs(t, err, &rce)
			assert.Contains(t, err.Error(), "Permission denied")
			assert.Len(t, f.remote.Commands(), tt.wantCmds)
			assertScratchEmpty(t, f.scratch)
		})
	}
}

func TestDeploy_TransferFailure(t *testing.T) {
	f := newFixture(t)
	f.remote.CopyFunc = func(t remote.Target, localPath, parent string) error {
		return &remote.TransferError{Target: t, LocalPath: localPath, RemoteParent: parent, Output: "scp: disk full", ExitCode: 1}
	}

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})

	var terr *remote.TransferError
	require.ErrorAs(t, err, &terr)
	assert.True(t, strings.HasPrefix(err.Error(), "deployment failed: "))
	assert.Contains(t, err.Error(), "disk full")
	cmds := f.remote.Commands()
	require.Len(t, cmds, 2, "swap and launch never run")
	assert.Regexp(t, regexp.MustCompile(`^rm -rf 'deployments/demo-\d+'$`), cmds[1])
	assert.Contains(t, cmds[1], filepath.Base(f.remote.CopyCalls[0].LocalPath))
	assertScratchEmpty(t, f.scratch)
}

func TestDeploy_SwapFailureDiscardsStagedCopy(t *testing.T) {
	f := newFixture(t)
	f.remote.ExecFunc = func(_ remote.Target, cmd string) remote.Result {
		if strings.Contains(cmd, " && mv ") {
			return remotetesting.Failed("mv: cannot move: No space left on device", 1)
		}
		return remotetesting.OK("")
	}

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	var dfe *DeploymentFailedError
	require.ErrorAs(t, err, &dfe)
	assert.Equal(t, StageSwap, dfe.Stage)

	cmds := f.remote.Commands()
	require.Len(t, cmds, 3)
	staged := "deployments/" + filepath.Base(f.remote.CopyCalls[0].LocalPath)
	assert.Equal(t, "rm -rf '"+staged+"'", cmds[2])
	assertScratchEmpty(t, f.scratch)
}

func TestDeploy_DiscardFailureKeepsOriginalError(t *testing.T) {
	f := newFixture(t)
	f.remote.ExecFunc = func(_ remote.Target, cmd string) remote.Result {
		if strings.HasPrefix(cmd, "rm -rf") {
			return remotetesting.Failed("Read-only file system", 1)
		}
		return remotetesting.OK("")
	}

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	var dfe *DeploymentFailedError
	require.ErrorAs(t, err, &dfe)
	assert.Equal(t, StageSwap, dfe.Stage)
	assert.Len(t, f.remote.Commands(), 3)

	var warned bool
	for _, m := range f.log.Snapshot() {
		if m.Level == "warn" && strings.Contains(m.Message, "could not remove deployments/demo-") {
			warned = true
		}
	}
	assert.True(t, warned, "discard failure is logged")
}

func TestDeploy_LaunchFailureReturnsOutput(t *testing.T) {
	f := newFixture(t)
	f.remote.ExecFunc = func(_ remote.Target, cmd string) remote.Result {
		if strings.HasPrefix(cmd, "cd ") {
			return remotetesting.Failed("no configuration file provided", 14)
		}
		return remotetesting.OK("")
	}

	res, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 14, res.Launch.ExitCode)
	assert.Equal(t, "no configuration file provided", res.Output())

	var dfe *DeploymentFailedError
	require.ErrorAs(t, err, &dfe)
	assert.Equal(t, StageLaunch, dfe.Stage)
	assertScratchEmpty(t, f.scratch)
}

func TestDeploy_InvalidProjectName(t *testing.T) {
	for _, repo := range []string{"acme/..", "acme/.", "acme/bad name", "acme/x;rm"} {
		t.Run(repo, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.deployer().Deploy(context.Background(), Request{Repo: repo, Target: testTarget})
			var dfe *DeploymentFailedError
			require.ErrorAs(t, err, &dfe)
			assert.Equal(t, StageValidate, dfe.Stage)
			assert.Empty(t, f.source.CloneCalls)
			assert.Empty(t, f.remote.Commands())
			assert.NoDirExists(t, f.scratch)
		})
	}
}

func TestDeploy_MissingKey(t *testing.T) {
	f := newFixture(t)
	f.opts.Keys = keystore.New(t.TempDir(), keystore.NativeGenerator{}, logger.Noop())

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})

	var nf *keystore.KeyNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, f.source.CloneCalls)
	assert.NoDirExists(t, f.scratch)
}

func TestDeploy_Locked(t *testing.T) {
	f := newFixture(t)
	f.opts.Locks = lock.NewKeyed()

	held, err := f.opts.Locks.Acquire(context.Background(), lock.Key("demo", testTarget.String()), 0, "other deploy")
	require.NoError(t, err)
	defer held.Release()

	_, err = f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	var dfe *DeploymentFailedError
	require.ErrorAs(t, err, &dfe)
	assert.Equal(t, StageLock, dfe.Stage)
	assert.ErrorIs(t, err, lock.ErrLocked)
	assert.Empty(t, f.source.CloneCalls)

	// A different target isn't blocked.
	other := testTarget
	other.Host = "10.0.0.6"
	_, err = f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: other})
	assert.NoError(t, err)
}

func TestDeploy_WaitsForHolder(t *testing.T) {
	f := newFixture(t)
	f.opts.Locks = lock.NewKeyed()
	f.opts.LockTimeout = 5 * time.Second

	held, err := f.opts.Locks.Acquire(context.Background(), lock.Key("demo", testTarget.String()), 0, "other deploy")
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release()
	}()

	_, err = f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	require.NoError(t, err)

	var logged bool
	for _, m := range f.log.Snapshot() {
		if m.Level == "info" && strings.Contains(m.Message, "waiting up to 5s") && strings.Contains(m.Message, "other deploy") {
			logged = true
		}
	}
	assert.True(t, logged, "the current holder is logged while waiting")
}

func TestDeploy_SerializesSameProject(t *testing.T) {
	f := newFixture(t)
	f.opts.LockTimeout = 10 * time.Second

	var mu sync.Mutex
	inSwap := 0
	maxInSwap := 0
	f.remote.ExecFunc = func(_ remote.Target, cmd string) remote.Result {
		if strings.HasPrefix(cmd, "rm -rf") {
			mu.Lock()
			inSwap++
			if inSwap > maxInSwap {
				maxInSwap = inSwap
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			inSwap--
			mu.Unlock()
		}
		return remotetesting.OK("")
	}

	d := f.deployer()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInSwap)
}

func TestDeploy_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.remote.ExecFunc = func(remote.Target, string) remote.Result {
		cancel()
		return remotetesting.OK("")
	}

	_, err := f.deployer().Deploy(ctx, Request{Repo: "acme/demo", Target: testTarget})
	assert.ErrorIs(t, err, context.Canceled)
	assertScratchEmpty(t, f.scratch)
}

func TestDeploy_ObserverOrder(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}
	f.opts.Observer = obs

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	require.NoError(t, err)

	var want []string
	for _, s := range Stages {
		want = append(want, "start:"+string(s), "finish:"+string(s)+":ok")
	}
	assert.Equal(t, want, obs.events)
}

func TestDeploy_ObserverOnFailure(t *testing.T) {
	f := newFixture(t)
	f.source.CloneErr = errors.New("nope")
	obs := &recordingObserver{}
	f.opts.Observer = obs

	_, err := f.deployer().Deploy(context.Background(), Request{Repo: "acme/demo", Target: testTarget})
	require.Error(t, err)

	assert.Equal(t, []string{
		"start:workspace", "finish:workspace:ok",
		"start:fetch", "finish:fetch:err",
		"start:cleanup", "finish:cleanup:ok",
	}, obs.events)
}

func TestValidProjectName(t *testing.T) {
	assert.True(t, ValidProjectName("demo"))
	assert.True(t, ValidProjectName("my-app_2.0"))
	assert.False(t, ValidProjectName("."))
	assert.False(t, ValidProjectName(".."))
	assert.False(t, ValidProjectName(""))
	assert.False(t, ValidProjectName("a b"))
	assert.False(t, ValidProjectName("$(id)"))
}

func TestDeploymentFailedError(t *testing.T) {
	inner := &RemoteCommandError{Command: "x", Result: remotetesting.Failed("boom\n", 2)}
	err := &DeploymentFailedError{Stage: StageSwap, Err: inner}

	assert.Equal(t, "deployment failed: command failed: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
