package logger

import (
	"bytes"
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		force     bool
		expectLog bool
	}{
		{name: "logs when SHIPR_DEBUG is set", envValue: "1", expectLog: true},
		{name: "logs when SHIPR_DEBUG is any value", envValue: "true", expectLog: true},
		{name: "silent when SHIPR_DEBUG is empty", envValue: "", expectLog: false},
		{name: "forced on by SetDebug", envValue: "", force: true, expectLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)

			t.Setenv(DebugEnv, tt.envValue)
			SetDebug(tt.force)
			defer SetDebug(false)

			l := NewEnvLogger("[test]")
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] test message arg")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	buf := captureLog(t)

	l := NewEnvLogger("[lvl]")
	l.Info("info message %d", 42)
	l.Warn("warning message")
	l.Error("error message")

	out := buf.String()
	assert.Contains(t, out, "[lvl] info message 42")
	assert.Contains(t, out, "[lvl] WARN: warning message")
	assert.Contains(t, out, "[lvl] ERROR: error message")
}

func TestNoopLogger(t *testing.T) {
	buf := captureLog(t)

	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	assert.Empty(t, buf.String(), "noop logger should not produce any output")
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %s", "msg")
	l.Info("info %s", "msg")
	l.Warn("warn %s", "msg")
	l.Error("error %s", "msg")

	msgs := l.Snapshot()
	require.Len(t, msgs, 4)
	assert.Equal(t, LogMessage{Level: "debug", Message: "debug msg"}, msgs[0])
	assert.Equal(t, LogMessage{Level: "info", Message: "info msg"}, msgs[1])
	assert.Equal(t, LogMessage{Level: "warn", Message: "warn msg"}, msgs[2])
	assert.Equal(t, LogMessage{Level: "error", Message: "error msg"}, msgs[3])

	assert.True(t, l.HasLevel("warn"))
	l.Clear()
	assert.False(t, l.HasLevel("warn"))
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Info("goroutine %d", n)
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.Snapshot(), 20)
}

func TestDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	buf := NewBufferLogger()
	SetDefault(buf)
	assert.Equal(t, buf, Default())

	assert.Equal(t, Logger(buf), OrDefault(nil))
	other := Noop()
	assert.Equal(t, other, OrDefault(other))
}

func TestEnvLogger_FormatStrings(t *testing.T) {
	buf := captureLog(t)

	NewEnvLogger("[fmt]").Info("int: %d, string: %s, float: %.2f", 42, "hello", 3.14159)

	output := buf.String()
	assert.True(t, strings.Contains(output, "int: 42"))
	assert.True(t, strings.Contains(output, "string: hello"))
	assert.True(t, strings.Contains(output, "float: 3.14"))
}

func TestWarningsOnly(t *testing.T) {
	buf := NewBufferLogger()
	l := WarningsOnly(buf)

	l.Debug("d")
	l.Info("i")
	l.Warn("w %d", 1)
	l.Error("e")

	msgs := buf.Snapshot()
	assert.Equal(t, []LogMessage{{Level: "warn", Message: "w 1"}, {Level: "error", Message: "e"}}, msgs)
}
