// Package keystore manages the named SSH keypairs shipr authenticates with.
//
// Each key is a pair of files in one private directory: <name> (mode 0600)
// and <name>.pub (mode 0644). Paths are only ever built from validated names,
// so nothing outside the directory is read or written.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rileyhilliard/shipr/internal/logger"
	"golang.org/x/crypto/ssh"
)

const (
	publicSuffix = ".pub"
	dirPerm      = 0o700
	privatePerm  = 0o600
	publicPerm   = 0o644
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store is a directory of named keypairs. It does no locking; concurrent
// Generate and Delete of the same name are undefined.
type Store struct {
	dir string
	gen Generator
	log logger.Logger
}

// GeneratedKey is the result of a successful Generate.
type GeneratedKey struct {
	Name        string
	PublicKey   string
	PrivatePath string
}

// KeyInfo describes a stored key.
type KeyInfo struct {
	Name        string
	PrivatePath string
	PublicPath  string
	Type        string
	Comment     string
	Fingerprint string
	HasPublic   bool
}

// New returns a Store rooted at dir. A nil generator means ssh-keygen.
func New(dir string, gen Generator, log logger.Logger) *Store {
	if gen == nil {
		gen = KeygenGenerator{}
	}
	return &Store{
		dir: dir,
		gen: gen,
		log: logger.OrDefault(log),
	}
}

// Dir returns the key directory.
func (s *Store) Dir() string {
	return s.dir
}

// ValidName reports whether name can be used as a key name.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && !strings.HasSuffix(name, publicSuffix)
}

// Generate creates a new keypair and returns its public key and private path.
func (s *Store) Generate(ctx context.Context, name, comment string) (*GeneratedKey, error) {
	if !ValidName(name) {
		return nil, &KeyGenerationError{Name: name, Err: ErrInvalidName}
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return nil, &KeyGenerationError{Name: name, Reason: "create key directory", Err: err}
	}

	priv, pub := s.paths(name)
	for _, p := range []string{priv, pub} {
		if _, err := os.Stat(p); err == nil {
			return nil, &KeyGenerationError{Name: name, Reason: "already exists", Err: os.ErrExist}
		}
	}

	if comment == "" {
		comment = name
	}

	s.log.Debug("generating key %s in %s", name, s.dir)
	if err := s.gen.Generate(ctx, priv, comment); err != nil {
		s.discard(name, priv, pub)
		return nil, &KeyGenerationError{Name: name, Err: err}
	}

	if err := os.Chmod(priv, privatePerm); err != nil {
		s.discard(name, priv, pub)
		return nil, &KeyGenerationError{Name: name, Reason: "set private key mode", Err: err}
	}
	if err := os.Chmod(pub, publicPerm); err != nil {
		s.discard(name, priv, pub)
		return nil, &KeyGenerationError{Name: name, Reason: "set public key mode", Err: err}
	}

	content, err := os.ReadFile(pub)
	if err != nil {
		s.discard(name, priv, pub)
		return nil, &KeyGenerationError{Name: name, Reason: "read public key", Err: err}
	}

	s.log.Info("generated key %s", name)
	return &GeneratedKey{
		Name:        name,
		PublicKey:   string(content),
		PrivatePath: priv,
	}, nil
}

// discard removes whatever a failed Generate left behind so the name can be
// used again. Both paths were checked to be absent before generating.
func (s *Store) discard(name string, paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("could not remove %s after failed generation of %s: %v", p, name, err)
		}
	}
}

// PublicKey returns the content of the named public key file.
func (s *Store) PublicKey(name string) (string, error) {
	if !ValidName(name) {
		return "", &KeyNotFoundError{Name: name, Err: ErrInvalidName}
	}

	_, pub := s.paths(name)
	data, err := os.ReadFile(pub)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &KeyNotFoundError{Name: name, Path: pub}
		}
		return "", fmt.Errorf("read public key %s: %w", pub, err)
	}
	return string(data), nil
}

// PrivatePath returns the path of the named private key, which must exist.
func (s *Store) PrivatePath(name string) (string, error) {
	if !ValidName(name) {
		return "", &KeyNotFoundError{Name: name, Err: ErrInvalidName}
	}

	priv, _ := s.paths(name)
	info, err := os.Stat(priv)
	if err != nil || info.IsDir() {
		return "", &KeyNotFoundError{Name: name, Path: priv, Err: err}
	}
	return priv, nil
}

// Exists reports whether the named private key exists.
func (s *Store) Exists(name string) bool {
	_, err := s.PrivatePath(name)
	return err == nil
}

// Delete removes both key files. Missing files are not an error.
func (s *Store) Delete(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("delete key %q: %w", name, ErrInvalidName)
	}

	priv, pub := s.paths(name)
	for _, p := range []string{priv, pub} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("could not remove %s: %v", p, err)
		}
	}
	s.log.Info("deleted key %s", name)
	return nil
}

// List returns the names of all stored keys, inferred from private key files.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read key directory %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !ValidName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Info returns metadata for the named key. The fingerprint and type come from
// the public key when it is present.
func (s *Store) Info(name string) (*KeyInfo, error) {
	priv, err := s.PrivatePath(name)
	if err != nil {
		return nil, err
	}
	_, pub := s.paths(name)

	info := &KeyInfo{
		Name:        name,
		PrivatePath: priv,
		PublicPath:  pub,
	}

	data, err := os.ReadFile(pub)
	if err != nil {
		return info, nil
	}
	info.HasPublic = true

	key, comment, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		s.log.Warn("could not parse %s: %v", pub, err)
		return info, nil
	}
	info.Type = key.Type()
	info.Comment = comment
	info.Fingerprint = ssh.FingerprintSHA256(key)
	return info, nil
}

func (s *Store) paths(name string) (string, string) {
	priv := filepath.Join(s.dir, name)
	return priv, priv + publicSuffix
}
