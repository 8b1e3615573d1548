package sshutil

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry represents a parsed host entry from SSH config.
type SSHHostEntry struct {
	Alias    string // The Host pattern (alias)
	Hostname string // The HostName value (actual host to connect to)
	User     string // The User value
	Port     string // The Port value
}

// matchWarningOnce ensures the Match directive warning is only shown once per process.
var matchWarningOnce sync.Once

// WarningHandler receives non-fatal warnings. Nil discards them.
var WarningHandler func(message string)

func emitWarning(message string) {
	if WarningHandler != nil {
		WarningHandler(message)
	}
}

// lookupHost returns the ssh_config settings for host, if any are set.
func lookupHost(configPath, host string) (SSHHostEntry, bool) {
	content, matchLine, err := preprocessSSHConfig(configPath)
	if err != nil {
		return SSHHostEntry{}, false
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return SSHHostEntry{}, false
	}

	entry := SSHHostEntry{Alias: host}
	entry.Hostname, _ = cfg.Get(host, "HostName")
	entry.Port, _ = cfg.Get(host, "Port")
	entry.User, _ = cfg.Get(host, "User")
	found := entry.Hostname != "" || entry.Port != "" || entry.User != ""

	if matchLine > 0 && !found {
		matchWarningOnce.Do(func() {
			emitWarning(fmt.Sprintf(
				"Host '%s' not found in SSH config (config has a Match block at line %d that may hide later entries)",
				host, matchLine))
		})
	}
	return entry, found
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// ssh_config can't parse Match blocks. The second return is the Match line (0 if none).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}
