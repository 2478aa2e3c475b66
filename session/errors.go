package session

import (
	"errors"
	"fmt"
)

// ErrWaitTimeout reports that Wait gave up before the child exited. The
// caller can keep waiting or kill; it is not a failure of the session.
var ErrWaitTimeout = errors.New("session: wait timed out")

// ErrNotRunning reports an operation that needs a live child process.
var ErrNotRunning = errors.New("session: no running process")

// SpawnError wraps a pty allocation or process creation failure. Spawning
// is never retried; these are configuration problems the caller must see.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("session: spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IOError wraps a read or write failure on the child's byte channel while
// the session was still running. I/O errors after exit are the normal
// teardown signal and are never surfaced this way.
type IOError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
