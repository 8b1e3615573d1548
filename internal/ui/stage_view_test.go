package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/shipr/internal/deploy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m StageView, msg tea.Msg) (StageView, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sv, ok := next.(StageView)
	require.True(t, ok)
	return sv, cmd
}

func TestStageView_Lifecycle(t *testing.T) {
	m := NewStageView("Deploying acme/demo to deploy@host:22")
	view := m.View()
	assert.Contains(t, view, "Deploying acme/demo")
	assert.Contains(t, view, SymbolPending+" Creating workspace")

	m, cmd := update(t, m, stageStartedMsg{stage: deploy.StageWorkspace})
	assert.NotNil(t, cmd, "starting a stage starts its spinner")
	assert.Contains(t, m.View(), "Creating workspace...")

	m, _ = update(t, m, stageFinishedMsg{stage: deploy.StageWorkspace, elapsed: time.Millisecond})
	assert.Contains(t, m.View(), SymbolComplete+" Creating workspace")

	m, _ = update(t, m, stageStartedMsg{stage: deploy.StageFetch})
	m, _ = update(t, m, stageFinishedMsg{stage: deploy.StageFetch, err: errors.New("repository not found\nhint")})
	view = m.View()
	assert.Contains(t, view, SymbolFail+" Fetching source")
	assert.Contains(t, view, "repository not found")
	assert.NotContains(t, view, "hint")

	m, cmd = update(t, m, stagesDoneMsg{err: errors.New("deployment failed")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.EqualError(t, m.Err(), "deployment failed")

	view = m.View()
	assert.NotContains(t, view, "Launching", "stages that never ran are hidden at the end")
	assert.Contains(t, view, "Fetching source")
}

func TestStageView_FinishWithoutStart(t *testing.T) {
	m := NewStageView("")
	m, _ = update(t, m, stageFinishedMsg{stage: deploy.StageCleanup, elapsed: 2 * time.Second})
	assert.Contains(t, m.View(), SymbolComplete+" Cleaning up 2.0s")
}

func TestStageView_CtrlCCancelsOnce(t *testing.T) {
	calls := 0
	m := NewStageView("")
	m.onCancel = func() { calls++ }

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.Equal(t, 1, calls)
	assert.Contains(t, m.View(), "Cancelling")
}

func TestStageView_TickOnlyAdvancesRunningStages(t *testing.T) {
	m := NewStageView("")
	_, cmd := update(t, m, spinner.TickMsg{})
	assert.Nil(t, cmd)

	m, _ = update(t, m, stageStartedMsg{stage: deploy.StageTransfer})
	_, cmd = update(t, m, spinner.TickMsg{})
	assert.NotNil(t, cmd)
}

func TestRunStages_ReturnsFnError(t *testing.T) {
	var out bytes.Buffer
	want := errors.New("boom")

	err := RunStages(context.Background(), "Deploying", &out, strings.NewReader(""),
		func(ctx context.Context, obs deploy.Observer) error {
			obs.StageStarted(deploy.StageWorkspace)
			obs.StageFinished(deploy.StageWorkspace, time.Millisecond, nil)
			return want
		})

	assert.Equal(t, want, err)
	assert.Contains(t, out.String(), "Creating workspace")
}
