package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/shipr/internal/errors"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with durations as strings so the written file
// reads "10s" instead of nanoseconds.
type fileConfig struct {
	Version    int               `yaml:"version"`
	KeysDir    string            `yaml:"keys_dir"`
	ScratchDir string            `yaml:"scratch_dir"`
	Tools      ToolsConfig       `yaml:"tools"`
	Keys       KeysConfig        `yaml:"keys"`
	SSH        fileSSH           `yaml:"ssh"`
	Deploy     fileDeploy        `yaml:"deploy"`
	Targets    map[string]Target `yaml:"targets"`
}

type fileSSH struct {
	Transport             string `yaml:"transport"`
	ConnectTimeout        string `yaml:"connect_timeout"`
	StrictHostKeyChecking bool   `yaml:"strict_host_key_checking"`
	ExtraArgs             string `yaml:"extra_args"`
}

type fileDeploy struct {
	Root          string `yaml:"root"`
	LaunchCommand string `yaml:"launch_command"`
	EnvFile       string `yaml:"env_file"`
	LockTimeout   string `yaml:"lock_timeout"`
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	fc := fileConfig{
		Version:    cfg.Version,
		KeysDir:    cfg.KeysDir,
		ScratchDir: cfg.ScratchDir,
		Tools:      cfg.Tools,
		Keys:       cfg.Keys,
		SSH: fileSSH{
			Transport:             cfg.SSH.Transport,
			ConnectTimeout:        cfg.SSH.ConnectTimeout.String(),
			StrictHostKeyChecking: cfg.SSH.StrictHostKeyChecking,
			ExtraArgs:             cfg.SSH.ExtraArgs,
		},
		Deploy: fileDeploy{
			Root:          cfg.Deploy.Root,
			LaunchCommand: cfg.Deploy.LaunchCommand,
			EnvFile:       cfg.Deploy.EnvFile,
			LockTimeout:   cfg.Deploy.LockTimeout.String(),
		},
		Targets: cfg.Targets,
	}

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Write saves cfg to path. An existing file is only replaced when force is set.
func Write(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s already exists", path),
				"Use --force to overwrite it")
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render config", "")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't create %s", filepath.Dir(path)),
			"Check directory permissions")
	}

	header := []byte("# shipr configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't write %s", path),
			"Check directory permissions")
	}
	return nil
}
