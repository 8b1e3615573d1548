package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/rileyhilliard/shipr/internal/logger"
)

// sshConnectionFailedCode is what ssh exits with when it can't connect or
// authenticate. Remote commands exiting 255 are indistinguishable.
const sshConnectionFailedCode = 255

// CLIOptions configures a CLI transport.
type CLIOptions struct {
	SSH string // ssh binary, default "ssh"
	SCP string // scp binary, default "scp"

	ConnectTimeout        time.Duration
	StrictHostKeyChecking bool

	// ExtraArgs are extra options for both ssh and scp, shell-style.
	ExtraArgs string
}

// CLI runs commands with the ssh binary and copies with scp.
type CLI struct {
	ssh       string
	scp       string
	keys      KeyResolver
	timeout   time.Duration
	strict    bool
	extraArgs []string
	log       logger.Logger
}

var _ Remote = (*CLI)(nil)

// NewCLI returns a CLI transport. It fails only when ExtraArgs can't be split.
func NewCLI(keys KeyResolver, opts CLIOptions, log logger.Logger) (*CLI, error) {
	extra, err := shlex.Split(opts.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("parse ssh extra args %q: %w", opts.ExtraArgs, err)
	}

	c := &CLI{
		ssh:       opts.SSH,
		scp:       opts.SCP,
		keys:      keys,
		timeout:   opts.ConnectTimeout,
		strict:    opts.StrictHostKeyChecking,
		extraArgs: extra,
		log:       logger.OrDefault(log),
	}
	if c.ssh == "" {
		c.ssh = "ssh"
	}
	if c.scp == "" {
		c.scp = "scp"
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	return c, nil
}

// Execute runs command on t. The command is handed to the remote shell
// verbatim as a single argument.
func (c *CLI) Execute(ctx context.Context, t Target, command string) (Result, error) {
	keyPath, err := c.keys.PrivatePath(t.KeyName)
	if err != nil {
		return Result{}, err
	}

	args := c.commonArgs(keyPath)
	args = append(args, "-p", strconv.Itoa(t.port()), t.User+"@"+t.Host, command)

	c.log.Debug("ssh %s: %s", t, command)
	stdout, stderr, runErr := run(ctx, c.ssh, args)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	res := Result{Stdout: stdout, Stderr: stderr}
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		res.Status = StatusOK
	case stderrors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.Status = StatusCommandFailed
		if res.ExitCode == sshConnectionFailedCode {
			res.Status = StatusConnectionFailed
		}
	default:
		// The ssh binary itself could not start.
		res.Status = StatusConnectionFailed
		res.ExitCode = -1
		if strings.TrimSpace(res.Stderr) == "" {
			res.Stderr = runErr.Error()
		}
	}

	c.log.Debug("ssh %s: %s (exit %d)", t, res.Status, res.ExitCode)
	return res, nil
}

// Copy copies localPath recursively into remoteParent on t.
func (c *CLI) Copy(ctx context.Context, t Target, localPath, remoteParent string) error {
	keyPath, err := c.keys.PrivatePath(t.KeyName)
	if err != nil {
		return err
	}

	args := []string{"-r", "-q"}
	args = append(args, c.commonArgs(keyPath)...)
	args = append(args, "-P", strconv.Itoa(t.port()), localPath, scpDestination(t, remoteParent))

	c.log.Debug("scp %s -> %s:%s", localPath, t, remoteParent)
	stdout, stderr, runErr := run(ctx, c.scp, args)
	if runErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	terr := &TransferError{
		Target:       t,
		LocalPath:    localPath,
		RemoteParent: remoteParent,
		Output:       stderr,
		ExitCode:     -1,
		Err:          runErr,
	}
	if strings.TrimSpace(terr.Output) == "" {
		terr.Output = stdout
	}
	var exitErr *exec.ExitError
	if stderrors.As(runErr, &exitErr) {
		terr.ExitCode = exitErr.ExitCode()
	}
	return terr
}

// commonArgs are the options ssh and scp share. Both take -i and -o.
func (c *CLI) commonArgs(keyPath string) []string {
	strict := "no"
	if c.strict {
		strict = "yes"
	}
	secs := int(c.timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	args := []string{
		"-i", keyPath,
		"-o", "IdentitiesOnly=yes",
		"-o", "StrictHostKeyChecking=" + strict,
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=" + strconv.Itoa(secs),
		"-o", "LogLevel=ERROR",
	}
	return append(args, c.extraArgs...)
}

// scpDestination formats user@host:path, bracketing IPv6 literals.
func scpDestination(t Target, remotePath string) string {
	host := t.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s@%s:%s", t.User, host, remotePath)
}

func run(ctx context.Context, bin string, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
