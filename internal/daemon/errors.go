package daemon

import "fmt"

// AlreadyRunningError is returned when another live daemon holds the lock
// file.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("daemon already running (pid %d)", e.PID)
}

// TimerIndexError reports a socket command addressing a timer outside the
// sequence.
type TimerIndexError struct {
	Index  int
	Length int
}

func (e *TimerIndexError) Error() string {
	return fmt.Sprintf("timer index %d out of range (%d timers)", e.Index, e.Length)
}

// UnknownCommandError reports a decoded command the daemon does not handle.
type UnknownCommandError struct {
	Kind string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Kind)
}
