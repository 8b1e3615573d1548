package config

import (
	"os"
	"path/filepath"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Transport names for SSHConfig.Transport.
const (
	TransportExec   = "exec"
	TransportNative = "native"
)

// Generator names for KeysConfig.Generator.
const (
	GeneratorKeygen = "ssh-keygen"
	GeneratorNative = "native"
)

// Config represents the complete shipr configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// KeysDir holds the named keypairs. Created 0700 on first use.
	KeysDir string `yaml:"keys_dir" mapstructure:"keys_dir"`

	// ScratchDir is the parent of ephemeral deployment workspaces.
	// Empty means <os temp>/shipr-deploy.
	ScratchDir string `yaml:"scratch_dir" mapstructure:"scratch_dir"`

	Tools   ToolsConfig       `yaml:"tools" mapstructure:"tools"`
	Keys    KeysConfig        `yaml:"keys" mapstructure:"keys"`
	SSH     SSHConfig         `yaml:"ssh" mapstructure:"ssh"`
	Deploy  DeployConfig      `yaml:"deploy" mapstructure:"deploy"`
	Targets map[string]Target `yaml:"targets" mapstructure:"targets"`
}

// ToolsConfig names the external binaries shipr shells out to.
// Values may be bare names (looked up on PATH) or absolute paths.
type ToolsConfig struct {
	SSH       string `yaml:"ssh" mapstructure:"ssh"`
	SCP       string `yaml:"scp" mapstructure:"scp"`
	SSHKeygen string `yaml:"ssh_keygen" mapstructure:"ssh_keygen"`
	SSHCopyID string `yaml:"ssh_copy_id" mapstructure:"ssh_copy_id"`

	// GH is the GitHub CLI. Empty means resolve it at startup.
	GH string `yaml:"gh" mapstructure:"gh"`
}

// KeysConfig controls keypair generation.
type KeysConfig struct {
	// Generator is "ssh-keygen" (default) or "native".
	Generator string `yaml:"generator" mapstructure:"generator"`
}

// SSHConfig controls how remote commands and copies are carried out.
type SSHConfig struct {
	// Transport is "exec" (ssh/scp binaries) or "native" (built-in client).
	Transport string `yaml:"transport" mapstructure:"transport"`

	// ConnectTimeout bounds connection setup so a dead network fails fast.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// StrictHostKeyChecking verifies host keys against known_hosts when true.
	// Off by default: unknown host keys are accepted for unattended use.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`

	// ExtraArgs are extra options for ssh and scp, written shell-style
	// (e.g. `-o ServerAliveInterval=15`).
	ExtraArgs string `yaml:"extra_args" mapstructure:"extra_args"`
}

// DeployConfig controls the deployment pipeline.
type DeployConfig struct {
	// Root is the remote directory holding one subdirectory per project.
	// Relative paths resolve against the remote login directory.
	Root string `yaml:"root" mapstructure:"root"`

	// LaunchCommand runs inside the project directory after the swap.
	LaunchCommand string `yaml:"launch_command" mapstructure:"launch_command"`

	// EnvFile is the name of the generated KEY=VALUE file.
	EnvFile string `yaml:"env_file" mapstructure:"env_file"`

	// LockTimeout is how long a deploy waits for another deploy of the
	// same project to the same target. Zero fails immediately.
	LockTimeout time.Duration `yaml:"lock_timeout" mapstructure:"lock_timeout"`
}

// Target is a named remote host.
type Target struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
	User string `yaml:"user" mapstructure:"user"`
	Key  string `yaml:"key" mapstructure:"key"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		KeysDir: filepath.Join(GlobalConfigPath(), "keys"),
		Tools: ToolsConfig{
			SSH:       "ssh",
			SCP:       "scp",
			SSHKeygen: "ssh-keygen",
			SSHCopyID: "ssh-copy-id",
		},
		Keys: KeysConfig{
			Generator: GeneratorKeygen,
		},
		SSH: SSHConfig{
			Transport:      TransportExec,
			ConnectTimeout: 10 * time.Second,
		},
		Deploy: DeployConfig{
			Root:          "deployments",
			LaunchCommand: "docker compose up -d",
			EnvFile:       ".env",
			LockTimeout:   5 * time.Minute,
		},
		Targets: make(map[string]Target),
	}
}

// ScratchRoot returns the directory that holds ephemeral workspaces.
func (c *Config) ScratchRoot() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}
	return filepath.Join(os.TempDir(), "shipr-deploy")
}

// GlobalConfigPath returns ~/.config/shipr, or a relative fallback when the
// home directory can't be determined.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return GlobalConfigDir
	}
	return filepath.Join(home, GlobalConfigDir)
}
