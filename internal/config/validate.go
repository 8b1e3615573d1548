package config

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/rileyhilliard/shipr/internal/errors"
)

// targetNamePattern matches names usable as target keys on the command line.
var targetNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but shipr only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade shipr, or lower the version field.")
	}

	if cfg.KeysDir == "" {
		return errors.New(errors.ErrConfig,
			"keys_dir is empty",
			"Set keys_dir to a private directory, e.g. ~/.config/shipr/keys")
	}

	if err := validateKeys(cfg.Keys); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'keys' section of your config.")
	}

	if err := validateSSH(cfg.SSH); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'ssh' section of your config.")
	}

	if err := validateDeploy(cfg.Deploy); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'deploy' section of your config.")
	}

	for name, t := range cfg.Targets {
		if err := validateTarget(name, t); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'targets' section of your config.")
		}
	}

	return nil
}

func validateKeys(k KeysConfig) error {
	switch k.Generator {
	case GeneratorKeygen, GeneratorNative:
		return nil
	default:
		return fmt.Errorf("keys.generator must be %q or %q, got %q", GeneratorKeygen, GeneratorNative, k.Generator)
	}
}

func validateSSH(s SSHConfig) error {
	switch s.Transport {
	case TransportExec, TransportNative:
	default:
		return fmt.Errorf("ssh.transport must be %q or %q, got %q", TransportExec, TransportNative, s.Transport)
	}
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("ssh.connect_timeout must be positive, got %s", s.ConnectTimeout)
	}
	return nil
}

func validateDeploy(d DeployConfig) error {
	root := strings.TrimSpace(d.Root)
	if root == "" {
		return fmt.Errorf("deploy.root is empty")
	}
	clean := path.Clean(root)
	if clean == "/" || clean == "." || clean == "~" {
		return fmt.Errorf("deploy.root %q would replace directories outside a dedicated root", d.Root)
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return fmt.Errorf("deploy.root %q must not contain '..'", d.Root)
		}
	}

	if strings.TrimSpace(d.LaunchCommand) == "" {
		return fmt.Errorf("deploy.launch_command is empty")
	}

	if d.EnvFile == "" || strings.ContainsAny(d.EnvFile, `/\`) || d.EnvFile == "." || d.EnvFile == ".." {
		return fmt.Errorf("deploy.env_file must be a plain file name, got %q", d.EnvFile)
	}

	if d.LockTimeout < 0 {
		return fmt.Errorf("deploy.lock_timeout can't be negative, got %s", d.LockTimeout)
	}
	return nil
}

func validateTarget(name string, t Target) error {
	if !targetNamePattern.MatchString(name) {
		return fmt.Errorf("target name %q may only contain lowercase letters, digits, '.', '_' and '-'", name)
	}
	if t.Host == "" {
		return fmt.Errorf("target %q has no host", name)
	}
	if t.User == "" {
		return fmt.Errorf("target %q has no user", name)
	}
	if t.Key == "" {
		return fmt.Errorf("target %q has no key", name)
	}
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("target %q has invalid port %d", name, t.Port)
	}
	return nil
}
