package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rileyhilliard/shipr/internal/doctor"
	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/ui"
	"github.com/spf13/cobra"
)

var (
	doctorJSON        bool
	doctorFix         bool
	doctorSkipTargets bool
)

// doctorWorkers bounds how many checks, mostly SSH round trips, run at once.
const doctorWorkers = 8

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check tools, keys and targets",
	Long: `Check that the tools shipr shells out to are installed, that gh is
logged in, that the key directory is private, and that every configured
target accepts its key.

Examples:
  shipr doctor
  shipr doctor --fix
  shipr doctor --skip-targets --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		opts := doctor.SuiteOptions{
			Config:   a.cfg,
			Keys:     a.keys,
			GhBinary: a.ghBinary,
			Auth:     a.source,
		}
		if !doctorSkipTargets {
			opts.Remote = a.remote
		}
		return doctorCommand(doctor.Suite(opts), doctorFix, doctorJSON, cmd.OutOrStdout())
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "repair what can be repaired automatically")
	doctorCmd.Flags().BoolVar(&doctorSkipTargets, "skip-targets", false, "don't connect to configured targets")
	rootCmd.AddCommand(doctorCmd)
}

// doctorJSONResult is the JSON shape of one check.
type doctorJSONResult struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Fixable    bool   `json:"fixable,omitempty"`
}

type doctorJSONOutput struct {
	Results []doctorJSONResult `json:"results"`
	Summary string             `json:"summary"`
	Healthy bool               `json:"healthy"`
}

func doctorCommand(checks []doctor.Check, fix, jsonOut bool, out io.Writer) error {
	results := doctor.Run(checks, doctorWorkers)

	var fixErrs []error
	if fix && doctor.Count(results).Fixable > 0 {
		results, fixErrs = doctor.FixAll(checks, results)
	}
	tally := doctor.Count(results)

	if jsonOut {
		payload := doctorJSONOutput{
			Results: make([]doctorJSONResult, len(results)),
			Summary: tally.Summary(),
			Healthy: tally.Healthy(),
		}
		for i, r := range results {
			payload.Results[i] = doctorJSONResult{
				Name:       r.Name,
				Category:   checks[i].Category(),
				Status:     r.Status.String(),
				Message:    r.Message,
				Suggestion: r.Suggestion,
				Fixable:    r.Fixable,
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
	} else {
		rows := make([]ui.DoctorCheckRow, len(results))
		for i, r := range results {
			rows[i] = ui.DoctorCheckRow{
				Status:     r.Status.String(),
				Category:   checks[i].Category(),
				Message:    r.Message,
				Suggestion: r.Suggestion,
			}
		}
		fmt.Fprint(out, ui.RenderDoctorTable(rows))

		for _, err := range fixErrs {
			fmt.Fprintf(out, "%s %v\n", ui.WarningStyle().Render(ui.SymbolWarning), err)
		}

		switch {
		case tally.Fail > 0:
			fmt.Fprintln(out, ui.ErrorStyle().Render(tally.Summary()))
		case tally.Warn > 0:
			fmt.Fprintln(out, ui.WarningStyle().Render(tally.Summary()))
		default:
			fmt.Fprintln(out, ui.SuccessStyle().Render(tally.Summary()))
		}
		if n := tally.Fixable; n > 0 && !fix {
			fmt.Fprintf(out, "%s\n", ui.MutedStyle().Render(fmt.Sprintf("Run 'shipr doctor --fix' to repair %d of them.", n)))
		}
	}

	if !tally.Healthy() {
		return errors.NewExitError(1)
	}
	return nil
}
