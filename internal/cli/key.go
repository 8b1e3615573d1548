package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/keystore"
	"github.com/rileyhilliard/shipr/internal/logger"
	"github.com/rileyhilliard/shipr/internal/remote"
	"github.com/rileyhilliard/shipr/internal/setup"
	"github.com/rileyhilliard/shipr/internal/ui"
	"github.com/spf13/cobra"
)

var (
	keyComment   string
	keyListJSON  bool
	keyShowPath  bool
	keyDeleteYes bool
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage SSH keypairs",
	Long: `Create, inspect and remove the named ed25519 keypairs shipr authenticates
with. Keys live in keys_dir (default ~/.config/shipr/keys).`,
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Create a new keypair",
	Long: `Create a new ed25519 keypair and print its public key.

Examples:
  shipr key generate prod
  shipr key generate prod --comment "deploy@ci"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return keyGenerateCommand(cmd.Context(), a.keys, args[0], keyComment, cmd.OutOrStdout())
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return keyListCommand(a.keys, keyListJSON, cmd.OutOrStdout())
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a key's public key",
	Long: `Print the public key, ready to paste into authorized_keys.

Examples:
  shipr key show prod >> authorized_keys
  shipr key show prod --path`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return keyShowCommand(a.keys, args[0], keyShowPath, cmd.OutOrStdout())
	},
}

var keyInstallCmd = &cobra.Command{
	Use:   "install <name> <target>",
	Short: "Add a public key to a target's authorized_keys",
	Long: `Install a key's public half on a target with ssh-copy-id, then check that
the target accepts it. ssh-copy-id may prompt for a password.

Examples:
  shipr key install prod prod
  shipr key install prod deploy@10.0.0.5:2222`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		t, err := resolveTarget(a.cfg, args[1], args[0])
		if err != nil {
			return err
		}
		opts := setup.InstallOptions{
			Binary:                a.cfg.Tools.SSHCopyID,
			Target:                t,
			ConnectTimeout:        a.cfg.SSH.ConnectTimeout,
			StrictHostKeyChecking: a.cfg.SSH.StrictHostKeyChecking,
		}
		return keyInstallCommand(cmd.Context(), a.keys, a.remote, opts, a.log, cmd.OutOrStdout())
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a keypair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return keyDeleteCommand(a.keys, args[0], keyDeleteYes, confirmDelete, cmd.OutOrStdout())
	},
}

func init() {
	keyGenerateCmd.Flags().StringVar(&keyComment, "comment", "", "comment stored in the public key (default: the key name)")
	keyListCmd.Flags().BoolVar(&keyListJSON, "json", false, "output in JSON format")
	keyShowCmd.Flags().BoolVar(&keyShowPath, "path", false, "print the private key path instead")
	keyDeleteCmd.Flags().BoolVarP(&keyDeleteYes, "yes", "y", false, "skip the confirmation prompt")

	keyCmd.AddCommand(keyGenerateCmd, keyListCmd, keyShowCmd, keyInstallCmd, keyDeleteCmd)
	rootCmd.AddCommand(keyCmd)
}

func keyGenerateCommand(ctx context.Context, keys *keystore.Store, name, comment string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	key, err := keys.Generate(ctx, name, comment)
	if err != nil {
		switch {
		case stderrors.Is(err, keystore.ErrInvalidName):
			return errors.WrapWithCode(err, errors.ErrKey,
				fmt.Sprintf("'%s' isn't a valid key name", name),
				"Use letters, digits, '.', '_' or '-', starting with a letter or digit.")
		case stderrors.Is(err, os.ErrExist):
			return errors.WrapWithCode(err, errors.ErrKey,
				fmt.Sprintf("Key '%s' already exists", name),
				fmt.Sprintf("Delete it first with: shipr key delete %s", name))
		default:
			return errors.WrapWithCode(err, errors.ErrKey,
				fmt.Sprintf("Couldn't generate key '%s'", name),
				"Check that ssh-keygen is installed, or set keys.generator: native")
		}
	}

	fmt.Fprintf(out, "%s Generated key %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), key.Name)
	fmt.Fprintf(out, "  %s\n\n", ui.MutedStyle().Render(key.PrivatePath))
	fmt.Fprintln(out, strings.TrimSpace(key.PublicKey))
	fmt.Fprintf(out, "\n%s\n", ui.MutedStyle().Render("Add the public key to ~/.ssh/authorized_keys on each target that should accept it."))
	return nil
}

// keyListEntry is the JSON shape of one key.
type keyListEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Comment     string `json:"comment,omitempty"`
	Path        string `json:"path"`
}

func keyListCommand(keys *keystore.Store, jsonOut bool, out io.Writer) error {
	names, err := keys.List()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKey,
			"Couldn't list keys",
			fmt.Sprintf("Check permissions on %s", keys.Dir()))
	}

	entries := make([]keyListEntry, 0, len(names))
	for _, name := range names {
		info, err := keys.Info(name)
		if err != nil {
			continue
		}
		entries = append(entries, keyListEntry{
			Name:        info.Name,
			Type:        info.Type,
			Fingerprint: info.Fingerprint,
			Comment:     info.Comment,
			Path:        info.PrivatePath,
		})
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No keys yet. Create one with: shipr key generate <name>")
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		typ := e.Type
		if typ == "" {
			typ = "(no public key)"
		}
		rows[i] = []string{e.Name, typ, e.Fingerprint, e.Comment}
	}
	fmt.Fprintln(out, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "NAME", Width: 16},
		{Title: "TYPE", Width: 16},
		{Title: "FINGERPRINT", Width: 52},
		{Title: "COMMENT", Width: 20},
	}, rows))
	return nil
}

func keyShowCommand(keys *keystore.Store, name string, showPath bool, out io.Writer) error {
	if showPath {
		p, err := keys.PrivatePath(name)
		if err != nil {
			return keyError(err, name)
		}
		fmt.Fprintln(out, p)
		return nil
	}

	pub, err := keys.PublicKey(name)
	if err != nil {
		return keyError(err, name)
	}
	fmt.Fprint(out, pub)
	if !strings.HasSuffix(pub, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

func keyInstallCommand(ctx context.Context, keys *keystore.Store, exec remote.Executor, opts setup.InstallOptions, log logger.Logger, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	name := opts.Target.KeyName
	info, err := keys.Info(name)
	if err != nil {
		return keyError(err, name)
	}
	if !info.HasPublic {
		return errors.New(errors.ErrKey,
			fmt.Sprintf("Key '%s' has no public key file", name),
			fmt.Sprintf("Recreate it: shipr key delete %s && shipr key generate %s", name, name))
	}
	opts.PublicKeyPath = info.PublicPath

	if err := setup.Install(ctx, opts, log); err != nil {
		return err
	}

	r, err := exec.Execute(ctx, opts.Target, "true")
	if err != nil {
		return remoteError(err, opts.Target)
	}
	if !r.OK() {
		return errors.New(errors.ErrSSH,
			fmt.Sprintf("Installed key %s, but %s still rejects it: %s", name, opts.Target, strings.TrimSpace(r.Output())),
			remote.Suggestion(r))
	}

	fmt.Fprintf(out, "%s %s accepts key %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), opts.Target, name)
	return nil
}

// confirmFunc asks a yes/no question.
type confirmFunc func(title string) (bool, error)

func confirmDelete(title string) (bool, error) {
	if !ui.IsTerminal(os.Stdin) {
		return false, errors.New(errors.ErrKey,
			"Refusing to delete without confirmation",
			"Pass --yes to delete non-interactively.")
	}

	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description("This cannot be undone").
				Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return false, nil
	}
	return confirm, nil
}

func keyDeleteCommand(keys *keystore.Store, name string, yes bool, confirm confirmFunc, out io.Writer) error {
	if !keystore.ValidName(name) {
		return errors.New(errors.ErrKey,
			fmt.Sprintf("'%s' isn't a valid key name", name),
			"Run 'shipr key list' to see stored keys.")
	}
	if !keys.Exists(name) {
		fmt.Fprintf(out, "Key %s doesn't exist, nothing to delete.\n", name)
		return nil
	}

	if !yes {
		ok, err := confirm(fmt.Sprintf("Delete key %s?", name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := keys.Delete(name); err != nil {
		return errors.WrapWithCode(err, errors.ErrKey,
			fmt.Sprintf("Couldn't delete key '%s'", name), "")
	}
	fmt.Fprintf(out, "%s Deleted key %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), name)
	return nil
}
