package remote

import (
	"regexp"
	"strings"
)

// commandNotFoundPatterns detect "command not found" messages from common
// shells. They only apply with exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)zsh: command not found: (\S+)`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

var authFailurePatterns = []string{
	"permission denied (publickey",
	"unable to authenticate",
	"no supported methods remain",
}

// CommandNotFound reports whether r failed because the remote shell could
// not find a command, and which one when that can be extracted.
func CommandNotFound(r Result) (string, bool) {
	if r.Status != StatusCommandFailed || r.ExitCode != 127 {
		return "", false
	}
	for _, pattern := range commandNotFoundPatterns {
		if m := pattern.FindStringSubmatch(r.Stderr); len(m) > 1 {
			return strings.TrimSuffix(m[1], ":"), true
		}
	}
	return "", true
}

// AuthFailed reports whether r failed because the host rejected the key.
func AuthFailed(r Result) bool {
	if r.Status != StatusConnectionFailed {
		return false
	}
	lower := strings.ToLower(r.Stderr)
	for _, p := range authFailurePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Suggestion returns a hint for a failed result, or "" when there is none.
func Suggestion(r Result) string {
	if r.OK() {
		return ""
	}
	if AuthFailed(r) {
		return "The host rejected the key. Add the public key (shipr key show <name>) to ~/.ssh/authorized_keys on the host."
	}
	if name, ok := CommandNotFound(r); ok {
		if name == "" {
			return "A command wasn't found in the remote shell's PATH."
		}
		return "'" + name + "' wasn't found in the remote shell's PATH. Install it on the host or use an absolute path."
	}
	if r.Status == StatusConnectionFailed {
		return "Check the host is reachable and sshd is running: ssh -v <user>@<host>"
	}
	return ""
}
