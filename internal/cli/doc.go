// Package cli implements the shipr command-line interface.
//
// Each Cobra command parses its flags, builds an app from the loaded
// config, and hands off to a command function that takes explicit inputs
// and writers so it can be tested without the command tree.
//
// # Command Structure
//
//	shipr key generate|list|show|delete   - Manage named SSH keypairs
//	shipr exec <target> <command...>      - Run a command on a target
//	shipr copy <target> <local> <parent>  - Copy a file or tree to a target
//	shipr deploy <owner/repo> [target]    - Fetch, configure, transfer, launch
//	shipr repos                           - List repositories visible to gh
//	shipr doctor                          - Diagnose local setup and targets
//	shipr config init                     - Write a starter config
//	shipr version                         - Print build information
//
// # Error Handling
//
// Commands return *errors.Error values with a code, message and suggestion.
// Execute renders them and exits 1. An *errors.ExitError passes a remote
// exit code through without printing anything.
//
// Global flags (--config, --verbose, --no-color) are defined on the root
// command and apply before any subcommand runs.
package cli
