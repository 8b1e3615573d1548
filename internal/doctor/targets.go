package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/shipr/internal/remote"
)

// TargetCheck verifies a configured target accepts commands.
type TargetCheck struct {
	TargetName string
	Target     remote.Target
	Exec       remote.Executor
	Timeout    time.Duration
}

func (c *TargetCheck) Name() string     { return "target_" + c.TargetName }
func (c *TargetCheck) Category() string { return "TARGETS" }

func (c *TargetCheck) Run() CheckResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	res, err := c.Exec.Execute(ctx, c.Target, "true")
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s (%s): %v", c.TargetName, c.Target, err),
			Suggestion: "Generate the key with: shipr key generate <name>",
		}
	}
	if !res.OK() {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s (%s): %s", c.TargetName, c.Target, strings.TrimSpace(res.Output())),
			Suggestion: remote.Suggestion(res),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (%s) reachable in %s", c.TargetName, c.Target, time.Since(start).Round(time.Millisecond)),
	}
}

func (c *TargetCheck) Fix() error {
	return nil
}
