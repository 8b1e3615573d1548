package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/rileyhilliard/shipr/internal/config"
	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/remote"
	"github.com/rileyhilliard/shipr/internal/ui"
)

// targetPicker is swapped out in tests.
var targetPicker = ui.PickTarget

// resolveTarget turns a target argument into a remote.Target. With no
// argument, a terminal user picks from the configured targets.
func resolveTarget(cfg *config.Config, ref, keyFlag string) (remote.Target, error) {
	if ref == "" && len(cfg.Targets) > 0 && ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout) {
		picked, err := pickTarget(cfg)
		if err != nil {
			return remote.Target{}, err
		}
		ref = picked
	}

	t, err := cfg.ResolveTarget(ref, keyFlag)
	if err != nil {
		return remote.Target{}, err
	}
	return remote.TargetFromConfig(t), nil
}

func pickTarget(cfg *config.Config) (string, error) {
	names := make([]string, 0, len(cfg.Targets))
	for name := range cfg.Targets {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]ui.TargetInfo, len(names))
	for i, name := range names {
		t := remote.TargetFromConfig(cfg.Targets[name])
		infos[i] = ui.TargetInfo{Name: name, Address: t.String(), Key: t.KeyName}
	}

	picked, err := targetPicker(infos)
	if err != nil {
		return "", err
	}
	if picked == nil {
		return "", errors.New(errors.ErrConfig, "No target selected", "Pass the target name as an argument.")
	}
	return picked.Name, nil
}

// keyError converts a missing-key error into a user-facing one.
func keyError(err error, keyName string) error {
	return errors.WrapWithCode(err, errors.ErrKey,
		fmt.Sprintf("Key '%s' isn't available", keyName),
		fmt.Sprintf("Create it with: shipr key generate %s", keyName))
}
