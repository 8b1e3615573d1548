// Package lock serializes operations that share a key within one process.
//
// Deploys of the same project to the same target must not interleave their
// remove and rename steps, so each takes the (project, target) key first.
// Different keys never block each other. There is no cross-process locking.
package lock

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Keyed is a set of mutexes addressed by string. The zero value is not
// usable; call NewKeyed.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem    chan struct{}
	holder *LockInfo
	refs   int
}

// Lock is a held key. Release it exactly once; extra calls are no-ops.
type Lock struct {
	Key  string
	Info *LockInfo

	k    *Keyed
	once sync.Once
}

// NewKeyed returns an empty Keyed.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// Key joins parts into a lock key.
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

// Acquire takes key, waiting up to timeout. A zero timeout fails at once if
// the key is held. The returned error wraps ErrLocked on timeout, or is the
// context's error on cancellation.
func (k *Keyed) Acquire(ctx context.Context, key string, timeout time.Duration, command string) (*Lock, error) {
	e := k.ref(key)
	start := time.Now()

	select {
	case e.sem <- struct{}{}:
		return k.held(key, e, command), nil
	default:
	}

	if timeout <= 0 {
		return nil, k.fail(key, e, 0)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		return k.held(key, e, command), nil
	case <-timer.C:
		return nil, k.fail(key, e, time.Since(start))
	case <-ctx.Done():
		k.unref(key, e)
		return nil, ctx.Err()
	}
}

// Holder returns who holds key, if anyone.
func (k *Keyed) Holder(key string) (*LockInfo, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok || e.holder == nil {
		return nil, false
	}
	return e.holder, true
}

// Release frees the key.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		l.k.release(l.Key)
	})
	return nil
}

func (k *Keyed) ref(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

// unref drops a reference and forgets idle keys so the map doesn't grow.
func (k *Keyed) unref(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *Keyed) held(key string, e *entry, command string) *Lock {
	info := NewLockInfo(command)
	k.mu.Lock()
	e.holder = info
	k.mu.Unlock()
	return &Lock{Key: key, Info: info, k: k}
}

func (k *Keyed) fail(key string, e *entry, waited time.Duration) error {
	k.mu.Lock()
	holder := e.holder
	k.mu.Unlock()
	k.unref(key, e)
	return &HeldError{Key: key, Holder: holder, Waited: waited}
}

func (k *Keyed) release(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if ok {
		e.holder = nil
	}
	k.mu.Unlock()
	if !ok {
		return
	}
	<-e.sem
	k.unref(key, e)
}
