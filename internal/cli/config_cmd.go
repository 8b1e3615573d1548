package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rileyhilliard/shipr/internal/config"
	"github.com/rileyhilliard/shipr/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configInitForce  bool
	configInitGlobal bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage shipr configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Long: `Write a config file populated with the defaults. By default it goes to
.shipr.yaml in the current directory; --global writes ~/.config/shipr/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName
		if configInitGlobal {
			path = filepath.Join(config.GlobalConfigPath(), config.GlobalConfigFile)
		}
		if cfgFile != "" {
			path = cfgFile
		}
		return configInitCommand(path, configInitForce, cmd.OutOrStdout())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, path, err := config.LoadOrDefault(cfgFile)
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "(none, using defaults)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configInitGlobal, "global", false, "write the global config instead")

	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configInitCommand(path string, force bool, out io.Writer) error {
	if err := config.Write(path, config.DefaultConfig(), force); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Wrote %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path)
	fmt.Fprintf(out, "  %s\n", ui.MutedStyle().Render("Add your hosts under 'targets', then run 'shipr doctor'."))
	return nil
}
