package lock

import (
	"os"
	"strconv"
	"time"
)

// LockInfo contains metadata about who holds a lock.
type LockInfo struct {
	User     string    `json:"user"`
	Hostname string    `json:"hostname"`
	Started  time.Time `json:"started"`
	PID      int       `json:"pid"`
	Command  string    `json:"command,omitempty"`
}

// NewLockInfo creates a LockInfo with the current user, hostname, time, PID, and command.
func NewLockInfo(command string) *LockInfo {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}

	return &LockInfo{
		User:     user,
		Hostname: hostname,
		Started:  time.Now(),
		PID:      os.Getpid(),
		Command:  command,
	}
}

// Age returns how long ago the lock was acquired.
func (i *LockInfo) Age() time.Duration {
	return time.Since(i.Started)
}

// String returns a human-readable description of who holds the lock.
func (i *LockInfo) String() string {
	s := i.User + "@" + i.Hostname + " (pid " + strconv.Itoa(i.PID) + ")"
	if i.Command != "" {
		s += ": " + i.Command
	}
	return s
}
