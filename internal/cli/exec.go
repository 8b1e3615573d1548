package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/keystore"
	"github.com/rileyhilliard/shipr/internal/remote"
	"github.com/spf13/cobra"
)

var execKey string

var execCmd = &cobra.Command{
	Use:   "exec <target> <command...>",
	Short: "Run a command on a target",
	Long: `Run a command on a target and stream back its output. shipr exits with
the remote command's exit code.

Examples:
  shipr exec prod uptime
  shipr exec prod "docker compose ps"
  shipr exec deploy@10.0.0.5 --key prod -- ls -la`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		t, err := resolveTarget(a.cfg, args[0], execKey)
		if err != nil {
			return err
		}
		return execCommand(cmd.Context(), a.remote, t, strings.Join(args[1:], " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	execCmd.Flags().StringVar(&execKey, "key", "", "key name to authenticate with")
	rootCmd.AddCommand(execCmd)
}

func execCommand(ctx context.Context, exec remote.Executor, t remote.Target, command string, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r, err := exec.Execute(ctx, t, command)
	if err != nil {
		return remoteError(err, t)
	}

	switch r.Status {
	case remote.StatusOK:
		fmt.Fprint(out, r.Stdout)
		fmt.Fprint(errOut, r.Stderr)
		return nil
	case remote.StatusCommandFailed:
		fmt.Fprint(out, r.Stdout)
		fmt.Fprint(errOut, r.Stderr)
		if hint := remote.Suggestion(r); hint != "" {
			fmt.Fprintf(errOut, "\n  %s\n", hint)
		}
		return errors.NewExitError(r.ExitCode)
	default:
		return errors.New(errors.ErrSSH,
			fmt.Sprintf("Couldn't connect to %s: %s", t, strings.TrimSpace(r.Output())),
			remote.Suggestion(r))
	}
}

// remoteError turns an error from Execute or Copy into a user-facing one.
func remoteError(err error, t remote.Target) error {
	var notFound *keystore.KeyNotFoundError
	if stderrors.As(err, &notFound) {
		return keyError(err, t.KeyName)
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.WrapWithCode(err, errors.ErrSSH, "Cancelled", "")
	}

	var transfer *remote.TransferError
	if stderrors.As(err, &transfer) {
		return errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Couldn't copy %s to %s", transfer.LocalPath, t),
			"Check the remote directory exists and is writable, and that scp is installed on both ends.")
	}
	return errors.WrapWithCode(err, errors.ErrSSH,
		fmt.Sprintf("Couldn't reach %s", t),
		"Run 'shipr doctor' to check tools and targets.")
}
