package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rileyhilliard/shipr/internal/deploy"
	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/keystore"
	"github.com/rileyhilliard/shipr/internal/lock"
	"github.com/rileyhilliard/shipr/internal/remote"
	"github.com/rileyhilliard/shipr/internal/source"
	"github.com/rileyhilliard/shipr/internal/ui"
	"github.com/spf13/cobra"
)

var (
	deployLaunch string
	deployScope  string
	deployKey    string
)

var deployCmd = &cobra.Command{
	Use:   "deploy <owner/repo> [target]",
	Short: "Deploy a GitHub project to a target",
	Long: `Clone a GitHub project, write its Actions variables to an env file,
copy it to <root>/<project> on the target and run the launch command there.

The previous deployment of the same project is removed before the new one
is moved into place.

Examples:
  shipr deploy acme/web prod
  shipr deploy acme/web prod --env production
  shipr deploy acme/api deploy@10.0.0.5 --key prod --command "make up"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ref := ""
		if len(args) == 2 {
			ref = args[1]
		}
		t, err := resolveTarget(a.cfg, ref, deployKey)
		if err != nil {
			return err
		}

		opts := deploy.Options{
			Remote:         a.remote,
			Source:         a.source,
			Keys:           a.keys,
			LockTimeout:    a.cfg.Deploy.LockTimeout,
			Root:           a.cfg.Deploy.Root,
			DefaultCommand: a.cfg.Deploy.LaunchCommand,
			EnvFile:        a.cfg.Deploy.EnvFile,
			ScratchDir:     a.cfg.ScratchRoot(),
			Log:            a.log,
		}
		req := deploy.Request{Repo: args[0], Target: t, Command: deployLaunch, Scope: deployScope}
		interactive := ui.IsTerminal(os.Stdout) && ui.IsTerminal(os.Stdin)
		return deployCommand(cmd.Context(), opts, req, interactive, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployLaunch, "command", "", "launch command (default: deploy.launch_command)")
	deployCmd.Flags().StringVar(&deployScope, "env", "", "GitHub environment whose variables override the repo's")
	deployCmd.Flags().StringVar(&deployKey, "key", "", "key name to authenticate with")
	rootCmd.AddCommand(deployCmd)
}

// deployCommand runs one deploy. Interactive runs get a live stage view;
// otherwise each stage is printed to errOut as it finishes.
func deployCommand(ctx context.Context, opts deploy.Options, req deploy.Request, interactive bool, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	title := fmt.Sprintf("Deploying %s to %s", req.Repo, req.Target)
	var res *deploy.Result
	run := func(ctx context.Context, obs deploy.Observer) error {
		opts.Observer = obs
		var err error
		res, err = deploy.New(opts).Deploy(ctx, req)
		return err
	}

	var err error
	if interactive {
		err = ui.RunStages(ctx, title, errOut, os.Stdin, run)
	} else {
		fmt.Fprintln(errOut, title)
		err = run(ctx, ui.NewStagePrinter(errOut))
	}

	if res != nil {
		pd := ui.NewPhaseDisplay(out)
		pd.Divider()
		if output := strings.TrimRight(res.Output(), "\n"); output != "" {
			fmt.Fprintln(out, output)
		}
		if err == nil {
			fmt.Fprintf(out, "\n%s Deployed %s to %s:%s in %s\n",
				ui.SuccessStyle().Render(ui.SymbolSuccess), res.Project, req.Target, res.RemoteDir,
				res.Duration.Round(time.Millisecond))
		}
	}
	if err != nil {
		return deployError(err, req)
	}
	return nil
}

// deployError maps a Deploy error to a user-facing one.
func deployError(err error, req deploy.Request) error {
	if stderrors.Is(err, lock.ErrLocked) {
		return errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Another deploy of %s to %s is running", source.ShortName(req.Repo), req.Target),
			"Wait for it to finish, or raise deploy.lock_timeout.")
	}

	var notFound *keystore.KeyNotFoundError
	if stderrors.As(err, &notFound) {
		return keyError(err, req.Target.KeyName)
	}

	var cmdErr *source.CommandError
	if stderrors.As(err, &cmdErr) {
		return errors.WrapWithCode(err, errors.ErrSource,
			fmt.Sprintf("Couldn't fetch %s", req.Repo),
			"Check the repository name and that 'gh auth status' succeeds.")
	}

	var transfer *remote.TransferError
	if stderrors.As(err, &transfer) {
		return errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Couldn't copy %s to %s", req.Repo, req.Target),
			"Check disk space and permissions under deploy.root on the target.")
	}

	suggestion := ""
	var rce *deploy.RemoteCommandError
	if stderrors.As(err, &rce) {
		suggestion = remote.Suggestion(rce.Result)
	}
	return errors.WrapWithCode(err, errors.ErrDeploy,
		fmt.Sprintf("Deploy of %s to %s failed", req.Repo, req.Target), suggestion)
}
