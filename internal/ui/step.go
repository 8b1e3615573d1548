package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StepState is where a step is in its lifecycle.
type StepState int

const (
	StepPending StepState = iota
	StepRunning
	StepDone
	StepFailed
	StepSkipped
)

// finished reports whether the step reached a final state.
func (s StepState) finished() bool {
	return s == StepDone || s == StepFailed || s == StepSkipped
}

// mark returns the symbol and color a step shows when it is not animating.
func (s StepState) mark() (string, lipgloss.Color) {
	switch s {
	case StepDone:
		return SymbolComplete, ColorSuccess
	case StepFailed:
		return SymbolFail, ColorError
	case StepSkipped:
		return SymbolSkipped, ColorWarning
	default:
		return SymbolPending, ColorMuted
	}
}

// SpinnerFrames is the animation shared by Spinner and StepSpinner.
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    100 * time.Millisecond,
}

// StepSpinner is one labelled step inside a Bubble Tea program.
type StepSpinner struct {
	spinner  spinner.Model
	Label    string
	State    StepState
	Started  time.Time
	Finished time.Time
}

// NewStepSpinner returns a pending step.
func NewStepSpinner(label string) StepSpinner {
	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)
	return StepSpinner{spinner: sp, Label: label}
}

// Start marks the step running and returns the first animation tick.
func (s *StepSpinner) Start() tea.Cmd {
	s.State = StepRunning
	s.Started = time.Now()
	return s.spinner.Tick
}

// Finish moves the step to a final state.
func (s *StepSpinner) Finish(state StepState) {
	s.State = state
	if !s.Started.IsZero() {
		s.Finished = time.Now()
	}
}

// Elapsed is how long the step ran, or has been running.
func (s StepSpinner) Elapsed() time.Duration {
	switch {
	case s.Started.IsZero():
		return 0
	case s.Finished.IsZero():
		return time.Since(s.Started)
	default:
		return s.Finished.Sub(s.Started)
	}
}

// Update advances the animation. Ticks are dropped unless the step runs.
func (s StepSpinner) Update(msg tea.Msg) (StepSpinner, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok || s.State != StepRunning {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(tick)
	return s, cmd
}

func (s StepSpinner) View() string {
	if s.State == StepRunning {
		return fmt.Sprintf("%s %s...", s.spinner.View(), s.Label)
	}
	symbol, color := s.State.mark()
	timing := ""
	if s.State.finished() && !s.Started.IsZero() {
		timing = formatDuration(s.Elapsed())
	}
	return FormatPhase(symbol, color, s.Label, timing)
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
