package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/shipr/internal/deploy"
	"github.com/rileyhilliard/shipr/internal/util"
)

// DividerWidth is the default width for divider lines.
const DividerWidth = 64

// PhaseDisplay renders step status lines to an output writer.
type PhaseDisplay struct {
	w io.Writer
}

// NewPhaseDisplay creates a new phase display writing to w.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	return &PhaseDisplay{w: w}
}

// RenderSuccess renders a completed step.
// Shows: ● Transferring files 0.3s
func (pd *PhaseDisplay) RenderSuccess(name string, duration time.Duration) {
	fmt.Fprintln(pd.w, FormatPhase(SymbolComplete, ColorSuccess, name, formatDuration(duration)))
}

// RenderFailed renders a failed step and, if set, its error underneath.
func (pd *PhaseDisplay) RenderFailed(name string, duration time.Duration, err error) {
	fmt.Fprintln(pd.w, FormatPhase(SymbolFail, ColorError, name, formatDuration(duration)))
	if err != nil {
		fmt.Fprintf(pd.w, "  %s\n", MutedStyle().Render(util.FirstLine(err.Error())))
	}
}

// RenderSkipped renders a skipped step.
func (pd *PhaseDisplay) RenderSkipped(name string, reason string) {
	timing := ""
	if reason != "" {
		timing = "(" + reason + ")"
	}
	fmt.Fprintln(pd.w, FormatPhase(SymbolSkipped, ColorWarning, name, timing))
}

// Divider renders a horizontal line to separate steps from command output.
func (pd *PhaseDisplay) Divider() {
	fmt.Fprintf(pd.w, "\n%s\n\n", FormatDivider(DividerWidth))
}

// CommandPrompt renders the command about to be executed.
// Shows: $ docker compose up -d
func (pd *PhaseDisplay) CommandPrompt(cmd string) {
	fmt.Fprintf(pd.w, "%s %s\n", MutedStyle().Render("$"), cmd)
}

// FormatPhase returns a formatted phase line as a string.
func FormatPhase(symbol string, symbolColor lipgloss.Color, name string, timing string) string {
	symbolStyle := lipgloss.NewStyle().Foreground(symbolColor)
	if timing == "" {
		return fmt.Sprintf("%s %s", symbolStyle.Render(symbol), name)
	}
	return fmt.Sprintf("%s %s %s", symbolStyle.Render(symbol), name, MutedStyle().Render(timing))
}

// FormatDivider returns a divider line as a string.
func FormatDivider(width int) string {
	return MutedStyle().Render(strings.Repeat("━", width))
}

// StagePrinter is a deploy.Observer that prints one line per finished
// stage. It is used when output is not a terminal.
type StagePrinter struct {
	mu sync.Mutex
	pd *PhaseDisplay
}

var _ deploy.Observer = (*StagePrinter)(nil)

// NewStagePrinter returns a printer writing to w.
func NewStagePrinter(w io.Writer) *StagePrinter {
	return &StagePrinter{pd: NewPhaseDisplay(w)}
}

func (p *StagePrinter) StageStarted(deploy.Stage) {}

func (p *StagePrinter) StageFinished(s deploy.Stage, elapsed time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.pd.RenderFailed(s.Description(), elapsed, err)
		return
	}
	p.pd.RenderSuccess(s.Description(), elapsed)
}
