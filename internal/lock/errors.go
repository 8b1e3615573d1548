package lock

import (
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned when a key is held by someone else.
// This is a sentinel error that can be checked with errors.Is().
var ErrLocked = errors.New("lock is held by another operation")

// HeldError says who holds a key we couldn't get. It matches ErrLocked.
type HeldError struct {
	Key    string
	Holder *LockInfo
	Waited time.Duration
}

func (e *HeldError) Error() string {
	msg := fmt.Sprintf("%q is locked", e.Key)
	if e.Holder != nil {
		msg += " by " + e.Holder.String()
	}
	if e.Waited > 0 {
		msg += fmt.Sprintf(" (waited %s)", e.Waited)
	}
	return msg
}

func (e *HeldError) Unwrap() error {
	return ErrLocked
}
