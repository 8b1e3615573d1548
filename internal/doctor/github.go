package doctor

import (
	"context"
	"time"
)

// AuthChecker reports whether the source CLI is logged in.
type AuthChecker interface {
	AuthStatus(ctx context.Context) error
}

// GhAuthCheck verifies gh is authenticated.
type GhAuthCheck struct {
	Auth    AuthChecker
	Timeout time.Duration
}

func (c *GhAuthCheck) Name() string     { return "gh_auth" }
func (c *GhAuthCheck) Category() string { return "SOURCE" }

func (c *GhAuthCheck) Run() CheckResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.Auth.AuthStatus(ctx); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "gh is not authenticated",
			Suggestion: "Run: gh auth login",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "gh is authenticated",
	}
}

func (c *GhAuthCheck) Fix() error {
	return nil
}
