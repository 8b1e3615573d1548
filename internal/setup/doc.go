// Package setup installs shipr public keys on remote hosts.
//
// Install wraps ssh-copy-id, which authenticates with whatever the user
// already has (a password or an agent key) and appends the public key to
// ~/.ssh/authorized_keys on the host. When ssh-copy-id isn't available,
// ManualInstructions prints the equivalent one-liner.
package setup
