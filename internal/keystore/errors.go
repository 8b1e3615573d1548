package keystore

import (
	"errors"
	"fmt"
)

// ErrInvalidName is returned for key names that could escape the key directory
// or collide with the public key suffix.
var ErrInvalidName = errors.New("invalid key name")

// KeyNotFoundError means the named key has no file in the store.
type KeyNotFoundError struct {
	Name string
	Path string
	Err  error
}

func (e *KeyNotFoundError) Error() string {
	if e.Err != nil && errors.Is(e.Err, ErrInvalidName) {
		return fmt.Sprintf("key %q not found: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("key %q not found at %s", e.Name, e.Path)
}

func (e *KeyNotFoundError) Unwrap() error {
	return e.Err
}

// KeyGenerationError means a keypair could not be created.
type KeyGenerationError struct {
	Name   string
	Reason string
	Err    error
}

func (e *KeyGenerationError) Error() string {
	msg := fmt.Sprintf("failed to generate key %q", e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *KeyGenerationError) Unwrap() error {
	return e.Err
}
