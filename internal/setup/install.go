package setup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/logger"
	"github.com/rileyhilliard/shipr/internal/remote"
	"github.com/rileyhilliard/shipr/internal/util"
)

// DefaultBinary is the ssh-copy-id executable looked up on PATH.
const DefaultBinary = "ssh-copy-id"

// InstallOptions configures Install.
type InstallOptions struct {
	// Binary is the ssh-copy-id to run. Empty means DefaultBinary.
	Binary string
	// PublicKeyPath is the .pub file to install.
	PublicKeyPath string
	Target        remote.Target
	// ConnectTimeout is passed to ssh. Zero leaves ssh's default.
	ConnectTimeout time.Duration
	// StrictHostKeyChecking false accepts unknown host keys.
	StrictHostKeyChecking bool
}

// Install appends the public key to the target's authorized_keys using
// ssh-copy-id. The user may be prompted for a password on the terminal.
func Install(ctx context.Context, opts InstallOptions, log logger.Logger) error {
	log = logger.OrDefault(log)

	if _, err := os.Stat(opts.PublicKeyPath); err != nil {
		return errors.WrapWithCode(err, errors.ErrKey,
			fmt.Sprintf("Can't read public key %s", opts.PublicKeyPath),
			"Regenerate the key with: shipr key generate <name>")
	}

	bin := opts.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return errors.New(errors.ErrSSH,
			fmt.Sprintf("Can't find %s", bin),
			"Install OpenSSH, or add the key by hand:\n\n"+ManualInstructions(opts.Target, readKey(opts.PublicKeyPath)))
	}

	args := installArgs(opts)
	log.Debug("running %s", util.ShellJoin(append([]string{path}, args...)))

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = os.Stdin
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classify(err, strings.TrimSpace(output.String()), opts)
	}
	log.Info("installed %s on %s", opts.PublicKeyPath, opts.Target)
	return nil
}

func installArgs(opts InstallOptions) []string {
	args := []string{"-i", opts.PublicKeyPath}
	if opts.Target.Port > 0 && opts.Target.Port != 22 {
		args = append(args, "-p", strconv.Itoa(opts.Target.Port))
	}
	if opts.ConnectTimeout > 0 {
		args = append(args, "-o", "ConnectTimeout="+strconv.Itoa(int(opts.ConnectTimeout.Seconds())))
	}
	if !opts.StrictHostKeyChecking {
		args = append(args, "-o", "StrictHostKeyChecking=accept-new")
	}
	return append(args, opts.Target.User+"@"+opts.Target.Host)
}

// classify maps ssh-copy-id output to a structured error.
func classify(err error, output string, opts InstallOptions) error {
	host := opts.Target.Host
	switch {
	case strings.Contains(output, "Permission denied"):
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Permission denied on %s", host),
			"Double-check the password or credentials and try again.")
	case strings.Contains(output, "Connection refused"):
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Connection refused to %s", host),
			"Make sure SSH is running on the remote machine.")
	case strings.Contains(output, "Could not resolve hostname"):
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't resolve hostname %s", host),
			"Check the hostname and your network connection.")
	}

	msg := fmt.Sprintf("Couldn't install the key on %s", opts.Target)
	if output != "" {
		msg += ": " + output
	}
	return errors.WrapWithCode(err, errors.ErrSSH, msg,
		"Try by hand:\n\n"+ManualInstructions(opts.Target, readKey(opts.PublicKeyPath)))
}

// ManualInstructions returns a shell one-liner that installs pubKey on t.
// An empty pubKey gives step-by-step instructions instead.
func ManualInstructions(t remote.Target, pubKey string) string {
	dest := t.User + "@" + t.Host
	if t.Port > 0 && t.Port != 22 {
		dest = "-p " + strconv.Itoa(t.Port) + " " + dest
	}

	pubKey = strings.TrimSpace(pubKey)
	if pubKey == "" {
		return fmt.Sprintf(`1. Print the public key:
   shipr key show <name>

2. Append it on the host:
   ssh %s "mkdir -p ~/.ssh && chmod 700 ~/.ssh && cat >> ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys"
`, dest)
	}

	remoteCmd := "mkdir -p ~/.ssh && chmod 700 ~/.ssh && echo " + util.ShellQuote(pubKey) +
		" >> ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys"
	return fmt.Sprintf("ssh %s %s\n", dest, util.ShellQuote(remoteCmd))
}

func readKey(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
