package doctor

import (
	"fmt"
	"os"

	"github.com/rileyhilliard/shipr/internal/util"
)

// KeyLister lists stored key names.
type KeyLister interface {
	List() ([]string, error)
}

// KeyDirCheck verifies the key directory is private to the user.
type KeyDirCheck struct {
	Dir  string
	Keys KeyLister
}

func (c *KeyDirCheck) Name() string     { return "key_dir" }
func (c *KeyDirCheck) Category() string { return "KEYS" }

func (c *KeyDirCheck) Run() CheckResult {
	info, err := os.Stat(c.Dir)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Key directory does not exist: %s", c.Dir),
			Suggestion: "It is created by: shipr key generate <name>",
		}
	}
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("Cannot read key directory: %v", err),
		}
	}
	if !info.IsDir() {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Key directory is not a directory: %s", c.Dir),
			Suggestion: "Point keys_dir in your config at a directory",
		}
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Key directory is accessible to others (%04o): %s", perm, c.Dir),
			Suggestion: fmt.Sprintf("Fix: chmod 700 %s", c.Dir),
			Fixable:    true,
		}
	}

	count := 0
	if c.Keys != nil {
		if names, err := c.Keys.List(); err == nil {
			count = len(names)
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %s", c.Dir, util.CountNoun(count, "key", "keys")),
	}
}

// Fix restricts the directory to its owner.
func (c *KeyDirCheck) Fix() error {
	return os.Chmod(c.Dir, 0o700)
}
