// Package util holds small string helpers shared by the other packages.
package util

import (
	"regexp"
	"strings"
)

// shellSafe matches words that need no quoting in a POSIX shell.
var shellSafe = regexp.MustCompile(`^[A-Za-z0-9@%+=:,./_-]+$`)

// ShellQuote wraps s in single quotes so a POSIX shell reads it literally.
func ShellQuote(s string) string {
	// ' becomes '\'' (close, escaped quote, reopen)
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ShellQuotePreserveTilde quotes a path but leaves a leading ~/ unquoted so
// the remote shell still expands it to the home directory.
func ShellQuotePreserveTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		return "~/" + ShellQuote(path[2:])
	}
	if path == "~" {
		return "~"
	}
	return ShellQuote(path)
}

// ShellJoin renders args as a command line, quoting only the words that
// need it. It is meant for logs and hints, not for building commands.
func ShellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if shellSafe.MatchString(a) {
			quoted[i] = a
			continue
		}
		quoted[i] = ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}
