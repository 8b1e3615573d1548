package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/remote"
	"github.com/rileyhilliard/shipr/internal/ui"
	"github.com/spf13/cobra"
)

var copyKey string

var copyCmd = &cobra.Command{
	Use:   "copy <target> <local> <remote-parent>",
	Short: "Copy a file or directory to a target",
	Long: `Recursively copy a local file or directory into a directory on the target.
The copy lands at <remote-parent>/<basename of local>; the parent must exist.

Examples:
  shipr copy prod ./site www
  shipr copy deploy@10.0.0.5 --key prod ./build.tar.gz /tmp`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		t, err := resolveTarget(a.cfg, args[0], copyKey)
		if err != nil {
			return err
		}
		return copyCommand(cmd.Context(), a.remote, t, args[1], args[2], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	copyCmd.Flags().StringVar(&copyKey, "key", "", "key name to authenticate with")
	rootCmd.AddCommand(copyCmd)
}

func copyCommand(ctx context.Context, tr remote.Transferer, t remote.Target, local, remoteParent string, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(local); err != nil {
		return errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Can't read %s", local),
			"Check the local path exists.")
	}

	spinner := ui.NewSpinner(fmt.Sprintf("Copying %s to %s", filepath.Base(local), t), errOut)
	spinner.Start()
	if err := tr.Copy(ctx, t, local, remoteParent); err != nil {
		spinner.Fail()
		return remoteError(err, t)
	}
	spinner.Success()

	fmt.Fprintf(out, "%s:%s\n", t, path.Join(remoteParent, filepath.Base(filepath.Clean(local))))
	return nil
}
