package ui

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/shipr/internal/deploy"
	"github.com/rileyhilliard/shipr/internal/util"
)

type stageStartedMsg struct {
	stage deploy.Stage
}

type stageFinishedMsg struct {
	stage   deploy.Stage
	elapsed time.Duration
	err     error
}

type stagesDoneMsg struct {
	err error
}

var interruptKey = key.NewBinding(key.WithKeys("ctrl+c"))

type stageRow struct {
	stage   deploy.Stage
	spinner StepSpinner
	err     error
}

// StageView is a Bubble Tea model that shows each deployment stage with a
// spinner while it runs and its timing once it finishes.
type StageView struct {
	title      string
	rows       []stageRow
	onCancel   func()
	cancelling bool
	done       bool
	err        error
}

// NewStageView creates a view listing every observable stage as pending.
func NewStageView(title string) StageView {
	rows := make([]stageRow, len(deploy.Stages))
	for i, s := range deploy.Stages {
		rows[i] = stageRow{stage: s, spinner: NewStepSpinner(s.Description())}
	}
	return StageView{title: title, rows: rows}
}

// Init implements tea.Model.
func (m StageView) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StageView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stageStartedMsg:
		if i := m.index(msg.stage); i != -1 {
			return m, m.rows[i].spinner.Start()
		}

	case stageFinishedMsg:
		if i := m.index(msg.stage); i != -1 {
			row := &m.rows[i]
			row.spinner.Started = time.Now().Add(-msg.elapsed)
			if msg.err != nil {
				row.err = msg.err
				row.spinner.Finish(StepFailed)
			} else {
				row.spinner.Finish(StepDone)
			}
		}

	case stagesDoneMsg:
		m.done = true
		m.err = msg.err
		for i := range m.rows {
			if m.rows[i].spinner.State == StepPending {
				m.rows[i].spinner.Finish(StepSkipped)
			}
		}
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, interruptKey) && !m.cancelling {
			m.cancelling = true
			if m.onCancel != nil {
				m.onCancel()
			}
		}

	case spinner.TickMsg:
		var cmds []tea.Cmd
		for i := range m.rows {
			var cmd tea.Cmd
			m.rows[i].spinner, cmd = m.rows[i].spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// View implements tea.Model.
func (m StageView) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(m.title)
		b.WriteString("\n")
	}
	for _, row := range m.rows {
		if m.done && row.spinner.State == StepSkipped {
			continue
		}
		b.WriteString(row.spinner.View())
		b.WriteString("\n")
		if row.err != nil {
			b.WriteString("  ")
			b.WriteString(MutedStyle().Render(util.FirstLine(row.err.Error())))
			b.WriteString("\n")
		}
	}
	if m.cancelling && !m.done {
		b.WriteString(WarningStyle().Render("Cancelling, cleaning up..."))
		b.WriteString("\n")
	}
	return b.String()
}

// Err returns the error the run finished with.
func (m StageView) Err() error {
	return m.err
}

func (m StageView) index(s deploy.Stage) int {
	for i, row := range m.rows {
		if row.stage == s {
			return i
		}
	}
	return -1
}

// programObserver forwards stage events into a running program.
type programObserver struct {
	p *tea.Program
}

func (o programObserver) StageStarted(s deploy.Stage) {
	o.p.Send(stageStartedMsg{stage: s})
}

func (o programObserver) StageFinished(s deploy.Stage, elapsed time.Duration, err error) {
	o.p.Send(stageFinishedMsg{stage: s, elapsed: elapsed, err: err})
}

// RunStages runs fn while a StageView follows its progress on w. Ctrl+C
// cancels the context passed to fn. The returned error is fn's.
func RunStages(ctx context.Context, title string, w io.Writer, in io.Reader,
	fn func(ctx context.Context, obs deploy.Observer) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewStageView(title)
	model.onCancel = cancel

	p := tea.NewProgram(model, tea.WithOutput(w), tea.WithInput(in))

	errCh := make(chan error, 1)
	go func() {
		err := fn(ctx, programObserver{p: p})
		errCh <- err
		p.Send(stagesDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		if fnErr := <-errCh; fnErr != nil {
			return fnErr
		}
		return err
	}
	return <-errCh
}
