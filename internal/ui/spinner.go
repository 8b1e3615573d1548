package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Spinner shows one step on a plain writer. On a terminal it animates in
// place; elsewhere it prints only the final line.
type Spinner struct {
	mu      sync.Mutex
	w       io.Writer
	animate bool
	label   string
	state   StepState
	started time.Time
	width   int

	stop chan struct{}
	done chan struct{}
}

// NewSpinner returns a pending spinner writing to w.
func NewSpinner(label string, w io.Writer) *Spinner {
	f, ok := w.(*os.File)
	return &Spinner{
		w:       w,
		animate: ok && IsTerminal(f),
		label:   label,
	}
}

// Start begins the step. Calling it twice has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StepPending {
		return
	}
	s.state = StepRunning
	s.started = time.Now()
	if !s.animate {
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.drawFrame(0)
	go s.loop(s.stop, s.done)
}

func (s *Spinner) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(SpinnerFrames.FPS)
	defer ticker.Stop()

	for frame := 1; ; frame++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.drawFrame(frame)
			s.mu.Unlock()
		}
	}
}

// drawFrame redraws the running line. s.mu must be held.
func (s *Spinner) drawFrame(frame int) {
	glyph := SpinnerFrames.Frames[frame%len(SpinnerFrames.Frames)]
	line := fmt.Sprintf("%s %s...", lipgloss.NewStyle().Foreground(ColorSecondary).Render(glyph), s.label)
	s.clear()
	fmt.Fprint(s.w, line)
	s.width = lipgloss.Width(line)
}

// clear blanks the running line. s.mu must be held.
func (s *Spinner) clear() {
	if s.width > 0 {
		fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.width)+"\r")
		s.width = 0
	}
}

// Success ends the step as done.
func (s *Spinner) Success() { s.finish(StepDone) }

// Fail ends the step as failed.
func (s *Spinner) Fail() { s.finish(StepFailed) }

// Skip ends the step as skipped.
func (s *Spinner) Skip() { s.finish(StepSkipped) }

func (s *Spinner) finish(state StepState) {
	s.mu.Lock()
	if s.state.finished() {
		s.mu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.clear()

	symbol, color := state.mark()
	timing := ""
	if !s.started.IsZero() {
		timing = formatDuration(time.Since(s.started))
	}
	fmt.Fprintln(s.w, FormatPhase(symbol, color, s.label, timing))
}

// State returns the current state.
func (s *Spinner) State() StepState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Label returns the spinner's label.
func (s *Spinner) Label() string {
	return s.label
}
