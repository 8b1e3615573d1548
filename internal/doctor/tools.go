package doctor

import (
	"fmt"
	"os/exec"
)

// ToolCheck verifies a local binary can be found.
type ToolCheck struct {
	Tool       string // display name, e.g. "ssh"
	Binary     string // configured binary or path
	Suggestion string
	// Optional tools warn instead of failing when missing.
	Optional   bool

	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

func (c *ToolCheck) Name() string     { return "tool_" + c.Tool }
func (c *ToolCheck) Category() string { return "TOOLS" }

func (c *ToolCheck) Run() CheckResult {
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	binary := c.Binary
	if binary == "" {
		binary = c.Tool
	}

	path, err := lookPath(binary)
	if err != nil {
		status := StatusFail
		if c.Optional {
			status = StatusWarn
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     status,
			Message:    fmt.Sprintf("%s not found (%s)", c.Tool, binary),
			Suggestion: c.Suggestion,
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %s", c.Tool, path),
	}
}

func (c *ToolCheck) Fix() error {
	return nil
}
