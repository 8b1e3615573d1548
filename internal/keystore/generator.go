package keystore

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Generator writes a new keypair: the private key at privatePath and the
// OpenSSH public key at privatePath + ".pub". It must not overwrite files.
type Generator interface {
	Generate(ctx context.Context, privatePath, comment string) error
}

// KeygenGenerator shells out to ssh-keygen.
type KeygenGenerator struct {
	// Binary is the ssh-keygen executable. Empty means "ssh-keygen" on PATH.
	Binary string
}

// Generate runs ssh-keygen for an ed25519 key with an empty passphrase.
func (g KeygenGenerator) Generate(ctx context.Context, privatePath, comment string) error {
	bin := g.Binary
	if bin == "" {
		bin = "ssh-keygen"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-t", "ed25519",
		"-C", comment,
		"-f", privatePath,
		"-N", "",
		"-q",
	)
	// Closed stdin makes ssh-keygen fail instead of asking to overwrite.
	cmd.Stdin = nil

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", bin, err)
		}
		return fmt.Errorf("%s: %s: %w", bin, msg, err)
	}
	return nil
}

// NativeGenerator creates ed25519 keys in-process without external tools.
type NativeGenerator struct{}

// Generate writes an OpenSSH-format ed25519 keypair.
func (NativeGenerator) Generate(_ context.Context, privatePath, comment string) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return fmt.Errorf("convert public key: %w", err)
	}
	authorized := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
	if comment != "" {
		authorized += " " + comment
	}

	if err := writeExclusive(privatePath, pem.EncodeToMemory(block), 0o600); err != nil {
		return err
	}
	if err := writeExclusive(privatePath+".pub", []byte(authorized+"\n"), 0o644); err != nil {
		_ = os.Remove(privatePath)
		return err
	}
	return nil
}

// writeExclusive creates path, failing if it already exists.
func writeExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
