package remote

import (
	"fmt"

	"github.com/rileyhilliard/shipr/internal/config"
	"github.com/rileyhilliard/shipr/internal/logger"
)

// FromConfig builds the transport selected by ssh.transport.
func FromConfig(cfg *config.Config, keys KeyResolver, log logger.Logger) (Remote, error) {
	switch cfg.SSH.Transport {
	case config.TransportExec, "":
		return NewCLI(keys, CLIOptions{
			SSH:                   cfg.Tools.SSH,
			SCP:                   cfg.Tools.SCP,
			ConnectTimeout:        cfg.SSH.ConnectTimeout,
			StrictHostKeyChecking: cfg.SSH.StrictHostKeyChecking,
			ExtraArgs:             cfg.SSH.ExtraArgs,
		}, log)
	case config.TransportNative:
		return NewNative(keys, NativeOptions{
			ConnectTimeout:        cfg.SSH.ConnectTimeout,
			StrictHostKeyChecking: cfg.SSH.StrictHostKeyChecking,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown ssh transport %q", cfg.SSH.Transport)
	}
}

// TargetFromConfig converts a configured target.
func TargetFromConfig(t config.Target) Target {
	return Target{Host: t.Host, Port: t.Port, User: t.User, KeyName: t.Key}
}
