package deploy

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/shipr/internal/remote"
)

// DeploymentFailedError wraps whatever stopped a deploy. Its message is the
// inner message prefixed with "deployment failed: ".
type DeploymentFailedError struct {
	Stage Stage
	Err   error
}

func (e *DeploymentFailedError) Error() string {
	return "deployment failed: " + e.Err.Error()
}

func (e *DeploymentFailedError) Unwrap() error {
	return e.Err
}

// RemoteCommandError means a remote step ran (or tried to) and failed.
type RemoteCommandError struct {
	Command string
	Result  remote.Result
}

func (e *RemoteCommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Result.Status, strings.TrimSpace(e.Result.Output()))
}
