package doctor

import (
	"sort"
	"time"

	"github.com/rileyhilliard/shipr/internal/config"
	"github.com/rileyhilliard/shipr/internal/remote"
)

// SuiteOptions holds what the standard checks need.
type SuiteOptions struct {
	Config *config.Config
	Keys   KeyLister
	// GhBinary is the resolved gh binary.
	GhBinary string
	// Auth, when nil, skips gh_auth.
	Auth AuthChecker
	// Remote, when nil, skips the target checks.
	Remote remote.Executor
}

// Suite returns the standard checks for cfg, in display order.
func Suite(opts SuiteOptions) []Check {
	cfg := opts.Config

	checks := []Check{
		&ToolCheck{Tool: "ssh", Binary: cfg.Tools.SSH, Suggestion: "Install OpenSSH client"},
		&ToolCheck{Tool: "scp", Binary: cfg.Tools.SCP, Suggestion: "Install OpenSSH client"},
	}
	if cfg.Keys.Generator == config.GeneratorKeygen {
		checks = append(checks, &ToolCheck{
			Tool:       "ssh-keygen",
			Binary:     cfg.Tools.SSHKeygen,
			Suggestion: "Install OpenSSH, or set keys.generator: native",
		})
	}
	checks = append(checks, &ToolCheck{
		Tool:       "gh",
		Binary:     opts.GhBinary,
		Suggestion: "Install the GitHub CLI: https://cli.github.com",
	})
	checks = append(checks, &ToolCheck{
		Tool:       "ssh-copy-id",
		Binary:     cfg.Tools.SSHCopyID,
		Suggestion: "Only needed for 'shipr key install'. Install OpenSSH, or add keys to authorized_keys by hand.",
		Optional:   true,
	})
	if opts.Auth != nil {
		checks = append(checks, &GhAuthCheck{Auth: opts.Auth})
	}

	checks = append(checks, &KeyDirCheck{Dir: cfg.KeysDir, Keys: opts.Keys})

	if opts.Remote != nil {
		names := make([]string, 0, len(cfg.Targets))
		for name := range cfg.Targets {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			checks = append(checks, &TargetCheck{
				TargetName: name,
				Target:     remote.TargetFromConfig(cfg.Targets[name]),
				Exec:       opts.Remote,
				Timeout:    cfg.SSH.ConnectTimeout + 20*time.Second,
			})
		}
	}
	return checks
}
