// Package deploy runs the deployment pipeline: fetch a project, write its
// variables to an env file, copy it to the target, swap it into place, and
// run the launch command there.
//
// Remote layout is <root>/<project>. The tree is first copied to
// <root>/<workspace name> and then renamed over the old directory with
// rm -rf followed by mv. The two steps are not atomic: a crash between them
// leaves no deployment directory until the next deploy.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/shipr/internal/lock"
	"github.com/rileyhilliard/shipr/internal/logger"
	"github.com/rileyhilliard/shipr/internal/remote"
	"github.com/rileyhilliard/shipr/internal/source"
	"github.com/rileyhilliard/shipr/internal/util"
)

// Default values used when Options leaves them empty.
const (
	DefaultRoot          = "deployments"
	DefaultLaunchCommand = "docker compose up -d"
	DefaultEnvFile       = ".env"
)

// discardTimeout bounds removal of a staged copy after a failed transfer or swap.
const discardTimeout = 30 * time.Second

// projectNamePattern restricts project names to what is safe inside rm -rf.
var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Request is one deployment.
type Request struct {
	// Repo is the source identifier, e.g. "owner/repo".
	Repo   string
	Target remote.Target
	// Command runs in the deployment directory. Empty means the default.
	Command string
	// Scope selects extra variables that override project-level ones.
	Scope string
}

// Result describes a finished deployment.
type Result struct {
	ID        string
	Project   string
	RemoteDir string
	Variables int
	Launch    remote.Result
	Duration  time.Duration
}

// Output is the launch step's output.
func (r *Result) Output() string {
	return r.Launch.Output()
}

// Options configures a Deployer. Remote and Source are required.
type Options struct {
	Remote remote.Remote
	Source source.Source

	// Keys, when set, is checked for the target's key before anything else.
	Keys remote.KeyResolver

	// Locks serializes deploys of the same project to the same target.
	// Nil gives the Deployer its own.
	Locks *lock.Keyed
	// LockTimeout is how long to wait for a busy key. Zero fails at once.
	LockTimeout time.Duration

	Root           string
	DefaultCommand string
	EnvFile        string

	// ScratchDir is the parent of workspaces. Empty means <tmp>/shipr-deploy.
	ScratchDir string

	Observer Observer
	Log      logger.Logger
}

// Deployer runs deployments. It is safe for concurrent use.
type Deployer struct {
	rem         remote.Remote
	src         source.Source
	keys        remote.KeyResolver
	locks       *lock.Keyed
	lockTimeout time.Duration
	root        string
	command     string
	envFile     string
	scratch     string
	obs         Observer
	log         logger.Logger
}

// New returns a Deployer.
func New(opts Options) *Deployer {
	d := &Deployer{
		rem:         opts.Remote,
		src:         opts.Source,
		keys:        opts.Keys,
		locks:       opts.Locks,
		lockTimeout: opts.LockTimeout,
		root:        opts.Root,
		command:     opts.DefaultCommand,
		envFile:     opts.EnvFile,
		scratch:     opts.ScratchDir,
		obs:         opts.Observer,
		log:         logger.OrDefault(opts.Log),
	}
	if d.locks == nil {
		d.locks = lock.NewKeyed()
	}
	if d.root == "" {
		d.root = DefaultRoot
	}
	if d.command == "" {
		d.command = DefaultLaunchCommand
	}
	if d.envFile == "" {
		d.envFile = DefaultEnvFile
	}
	if d.scratch == "" {
		d.scratch = filepath.Join(os.TempDir(), "shipr-deploy")
	}
	if d.obs == nil {
		d.obs = nopObserver{}
	}
	return d
}

// ValidProjectName reports whether name can be used as a remote directory.
func ValidProjectName(name string) bool {
	return projectNamePattern.MatchString(name) && name != "." && name != ".."
}

// Deploy runs the pipeline for req. The local workspace is removed on every
// return path.
//
// If the launch command fails, both the Result (with its output) and a
// *DeploymentFailedError are returned.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	project := source.ShortName(req.Repo)
	res := &Result{
		ID:        uuid.NewString(),
		Project:   project,
		RemoteDir: path.Join(d.root, project),
	}

	if err := d.validate(req, project); err != nil {
		return nil, &DeploymentFailedError{Stage: StageValidate, Err: err}
	}

	command := req.Command
	if command == "" {
		command = d.command
	}

	key := lock.Key(project, req.Target.String())
	if holder, busy := d.locks.Holder(key); busy && d.lockTimeout > 0 {
		d.log.Info("[%s] waiting up to %s for %s", res.ID, d.lockTimeout, holder)
	}
	lk, err := d.locks.Acquire(ctx, key, d.lockTimeout, fmt.Sprintf("deploy %s (%s)", req.Repo, res.ID))
	if err != nil {
		return nil, &DeploymentFailedError{Stage: StageLock, Err: err}
	}
	defer lk.Release()

	d.log.Info("[%s] deploying %s to %s in %s", res.ID, req.Repo, req.Target, res.RemoteDir)

	var workspace string
	err = d.stage(ctx, StageWorkspace, func(context.Context) error {
		if err := os.MkdirAll(d.scratch, 0o700); err != nil {
			return fmt.Errorf("create scratch directory: %w", err)
		}
		workspace = filepath.Join(d.scratch, project+"-"+strconv.FormatInt(time.Now().UnixNano(), 10))
		if err := os.Mkdir(workspace, 0o700); err != nil {
			return fmt.Errorf("create workspace: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer d.cleanup(res.ID, workspace)

	err = d.stage(ctx, StageFetch, func(ctx context.Context) error {
		return d.src.Clone(ctx, req.Repo, workspace)
	})
	if err != nil {
		return nil, err
	}

	err = d.stage(ctx, StageConfigure, func(ctx context.Context) error {
		vars := d.gatherVariables(ctx, req.Repo, req.Scope)
		res.Variables = len(vars)
		if err := writeEnvFile(workspace, d.envFile, vars); err != nil {
			return fmt.Errorf("write %s: %w", d.envFile, err)
		}
		d.log.Debug("[%s] wrote %d variables", res.ID, len(vars))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = d.stage(ctx, StagePrepare, func(ctx context.Context) error {
		return d.exec(ctx, req.Target, "mkdir -p "+util.ShellQuotePreserveTilde(d.root))
	})
	if err != nil {
		return nil, err
	}

	staged := path.Join(d.root, filepath.Base(workspace))
	copied := false
	err = d.stage(ctx, StageTransfer, func(ctx context.Context) error {
		copied = true
		return d.rem.Copy(ctx, req.Target, workspace, d.root)
	})
	if err != nil {
		if copied {
			d.discardStaged(ctx, res.ID, req.Target, staged)
		}
		return nil, err
	}

	err = d.stage(ctx, StageSwap, func(ctx context.Context) error {
		final := util.ShellQuotePreserveTilde(res.RemoteDir)
		return d.exec(ctx, req.Target, fmt.Sprintf("rm -rf %s && mv %s %s",
			final, util.ShellQuotePreserveTilde(staged), final))
	})
	if err != nil {
		d.discardStaged(ctx, res.ID, req.Target, staged)
		return nil, err
	}

	err = d.stage(ctx, StageLaunch, func(ctx context.Context) error {
		launch := fmt.Sprintf("cd %s && %s", util.ShellQuotePreserveTilde(res.RemoteDir), command)
		r, err := d.rem.Execute(ctx, req.Target, launch)
		if err != nil {
			return err
		}
		res.Launch = r
		if !r.OK() {
			return &RemoteCommandError{Command: launch, Result: r}
		}
		return nil
	})
	res.Duration = time.Since(start)
	if err != nil {
		var rce *RemoteCommandError
		if errors.As(err, &rce) {
			return res, err
		}
		return nil, err
	}

	d.log.Info("[%s] deployed %s in %s", res.ID, project, res.Duration.Round(time.Millisecond))
	return res, nil
}

func (d *Deployer) validate(req Request, project string) error {
	if d.rem == nil || d.src == nil {
		return fmt.Errorf("deployer is missing its remote or source")
	}
	if !ValidProjectName(project) {
		return fmt.Errorf("project name %q from %q is not usable as a directory name", project, req.Repo)
	}
	if req.Target.Host == "" || req.Target.User == "" {
		return fmt.Errorf("target needs a host and a user, got %q", req.Target.String())
	}
	if d.keys != nil {
		if _, err := d.keys.PrivatePath(req.Target.KeyName); err != nil {
			return err
		}
	}
	return nil
}

// stage runs fn as stage s, reporting to the observer and wrapping errors.
func (d *Deployer) stage(ctx context.Context, s Stage, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &DeploymentFailedError{Stage: s, Err: err}
	}

	d.obs.StageStarted(s)
	start := time.Now()
	err := fn(ctx)
	d.obs.StageFinished(s, time.Since(start), err)

	if err != nil {
		d.log.Error("%s failed: %v", s, err)
		return &DeploymentFailedError{Stage: s, Err: err}
	}
	return nil
}

// exec runs a pipeline command, turning a failed Result into an error.
func (d *Deployer) exec(ctx context.Context, t remote.Target, command string) error {
	r, err := d.rem.Execute(ctx, t, command)
	if err != nil {
		return err
	}
	if !r.OK() {
		return &RemoteCommandError{Command: command, Result: r}
	}
	return nil
}

// discardStaged removes a partially transferred or unswapped copy from the
// target. Failures are only logged.
func (d *Deployer) discardStaged(ctx context.Context, id string, t remote.Target, staged string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := d.exec(ctx, t, "rm -rf "+util.ShellQuotePreserveTilde(staged)); err != nil {
		d.log.Warn("[%s] could not remove %s on %s: %v", id, staged, t, err)
	}
}

func (d *Deployer) cleanup(id, workspace string) {
	d.obs.StageStarted(StageCleanup)
	start := time.Now()
	err := os.RemoveAll(workspace)
	d.obs.StageFinished(StageCleanup, time.Since(start), err)
	if err != nil {
		d.log.Warn("[%s] could not remove workspace %s: %v", id, workspace, err)
	}
}
