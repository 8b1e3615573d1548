package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/logger"
	"github.com/rileyhilliard/shipr/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "shipr",
	Short: "Deploy GitHub projects to remote hosts over SSH",
	Long: `shipr manages SSH keypairs, runs commands on remote hosts, and deploys
GitHub projects to them.

A deploy clones the project, writes its GitHub Actions variables to an env
file, copies the tree to <root>/<project> on the target, and runs the launch
command there (docker compose up -d by default).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
		configureLogging(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .shipr.yaml, then ~/.config/shipr/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// configureLogging routes component logs to stderr. Without --verbose only
// warnings and errors get through.
func configureLogging(verbose bool) {
	logger.SetDebug(verbose)
	base := logger.NewEnvLogger("[shipr]")
	if verbose {
		logger.SetDefault(base)
		return
	}
	logger.SetDefault(logger.WarningsOnly(base))
}

// Execute runs the root command and exits with the right status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(handleError(err, os.Stderr))
	}
}

// Exit statuses for error categories a script may want to act on.
const (
	exitBusy   = 75 // another deploy holds the lock; retry later
	exitConfig = 78
)

var exitCodes = map[string]int{
	errors.ErrLock:   exitBusy,
	errors.ErrConfig: exitConfig,
}

// handleError prints err (unless it only carries an exit code) and returns
// the process exit status.
func handleError(err error, w io.Writer) int {
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}

	var structured *errors.Error
	if stderrors.As(err, &structured) {
		fmt.Fprintln(w, ui.ErrorStyle().Render(structured.Error()))
		if errors.IsCode(err, errors.ErrConfig) {
			fmt.Fprintln(w, ui.MutedStyle().Render("  Run 'shipr config path' to see which config file was loaded."))
		}
		if code, ok := exitCodes[errors.CodeOf(err)]; ok {
			return code
		}
		return 1
	}

	msg := err.Error()
	if isUsageError(msg) {
		fmt.Fprintf(w, "%s %s\n\n  Run 'shipr --help' for usage.\n", ui.SymbolFail, msg)
		return 2
	}
	fmt.Fprintf(w, "%s %s\n", ui.SymbolFail, msg)
	return 1
}

func isUsageError(msg string) bool {
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "accepts ", "requires at least", "flag needs an argument"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
