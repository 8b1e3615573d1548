package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the per-project config file name.
	ConfigFileName = ".shipr.yaml"
	// GlobalConfigDir is the directory for global config, relative to home.
	GlobalConfigDir = ".config/shipr"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides (SHIPR_DEPLOY_ROOT, ...).
	EnvPrefix = "SHIPR"
)

// Load reads config from the specified path. An empty path loads defaults
// plus environment overrides only.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'shipr config init' to create one, or point at one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .shipr.yaml in current directory
// 3. .shipr.yaml in parent directories (stops at git root or home)
// 4. ~/.config/shipr/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	home, _ := os.UserHomeDir()
	if path := findUpwards(cwd, home); path != "" {
		return path, nil
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// findUpwards looks for ConfigFileName in dir and its parents, stopping at
// a git root, the home directory, or the filesystem root.
func findUpwards(dir, home string) string {
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		if isGitRoot(dir) {
			return ""
		}

		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && parent == home) {
			return ""
		}
		dir = parent
	}
}

// LoadOrDefault loads config from the found path, or returns defaults
// (with environment overrides applied) if no file exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// newViper returns a viper instance with defaults and SHIPR_* env binding.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every scalar key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("version", def.Version)
	v.SetDefault("keys_dir", def.KeysDir)
	v.SetDefault("scratch_dir", def.ScratchDir)
	v.SetDefault("tools.ssh", def.Tools.SSH)
	v.SetDefault("tools.scp", def.Tools.SCP)
	v.SetDefault("tools.ssh_keygen", def.Tools.SSHKeygen)
	v.SetDefault("tools.ssh_copy_id", def.Tools.SSHCopyID)
	v.SetDefault("tools.gh", def.Tools.GH)
	v.SetDefault("keys.generator", def.Keys.Generator)
	v.SetDefault("ssh.transport", def.SSH.Transport)
	v.SetDefault("ssh.connect_timeout", def.SSH.ConnectTimeout.String())
	v.SetDefault("ssh.strict_host_key_checking", def.SSH.StrictHostKeyChecking)
	v.SetDefault("ssh.extra_args", def.SSH.ExtraArgs)
	v.SetDefault("deploy.root", def.Deploy.Root)
	v.SetDefault("deploy.launch_command", def.Deploy.LaunchCommand)
	v.SetDefault("deploy.env_file", def.Deploy.EnvFile)
	v.SetDefault("deploy.lock_timeout", def.Deploy.LockTimeout.String())
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		source := "your environment"
		if path != "" {
			source = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax and value types in "+source)
	}

	cfg.KeysDir = ExpandTilde(cfg.KeysDir)
	cfg.ScratchDir = ExpandTilde(cfg.ScratchDir)
	if cfg.Targets == nil {
		cfg.Targets = make(map[string]Target)
	}
	for name, t := range cfg.Targets {
		if t.Port == 0 {
			t.Port = 22
		}
		cfg.Targets[name] = t
	}

	return cfg, nil
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}
