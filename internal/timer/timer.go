// Package timer implements the command-backed timer state machine: a timer
// arms after a configured idle duration, runs its activation command, and is
// later unwound by exactly one of its abortion command (activity resumed
// while it was the most recent activation) or its deactivation command (the
// chain moved past it and the idle counter later reset).
package timer

import (
	"fmt"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/lull-sh/lull/internal/log"
)

// cmdAbortUrgency is how much slack the engine is allowed between detecting
// renewed activity and running a timer's abortion command.
const cmdAbortUrgency = time.Second

// SpawnError reports a hook command that failed to start. It is surfaced
// through the policy chain's Warning hook rather than failing the run.
type SpawnError struct {
	Hook string // "activation", "abortion" or "deactivation"
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %s command %q: %v", e.Hook, e.Argv, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Timer is one scheduled action in the ordered sequence.
type Timer interface {
	// TimeLeft returns the duration remaining until the timer is due given
	// the current idle duration. Zero or negative means already due. The
	// second result is false when the timer is never due, i.e. disabled.
	TimeLeft(idle time.Duration) (time.Duration, bool)
	// AbortUrgency returns how long an abort may be delayed after renewed
	// activity is detected. False means abort has no deadline to meet
	// (typically because there is no abortion command).
	AbortUrgency() (time.Duration, bool)
	// Activate runs the activation command and arms the timer.
	Activate() error
	// Abort runs the abortion command. Only valid after Activate, while
	// this timer is the most recent activation.
	Abort() error
	// Deactivate runs the deactivation command. Only valid after Activate,
	// once the chain has moved past this timer.
	Deactivate() error
	// Disabled reports whether the engine should skip this timer entirely.
	Disabled() bool
}

// CmdTimer is a Timer whose transitions spawn argv commands. A hook with no
// command is a pure state change. The disabled flag is atomic: the control
// socket loop flips it while the engine polls it from its own goroutine.
type CmdTimer struct {
	duration     time.Duration
	activation   []string
	abortion     []string
	deactivation []string
	disabled     atomic.Bool
}

// New builds a timer from pre-split argv vectors. Empty vectors mean "no
// command for this hook".
func New(duration time.Duration, activation, abortion, deactivation []string) *CmdTimer {
	t := &CmdTimer{duration: duration}
	if len(activation) > 0 {
		t.activation = activation
	}
	if len(abortion) > 0 {
		t.abortion = abortion
	}
	if len(deactivation) > 0 {
		t.deactivation = deactivation
	}
	return t
}

// NewShell builds a timer whose hooks are shell command strings, each run
// through "/bin/sh -c". Empty strings mean "no command for this hook".
func NewShell(duration time.Duration, activation, abortion, deactivation string) *CmdTimer {
	return New(duration, shellArgv(activation), shellArgv(abortion), shellArgv(deactivation))
}

func shellArgv(command string) []string {
	if command == "" {
		return nil
	}
	return []string{"/bin/sh", "-c", command}
}

// Duration returns the idle duration after which the timer is due.
func (t *CmdTimer) Duration() time.Duration { return t.duration }

// Activation returns the activation argv, nil if none.
func (t *CmdTimer) Activation() []string { return t.activation }

// SetDisabled flips the disabled flag. Safe to call concurrently with the
// engine; the new value is visible at its next tick.
func (t *CmdTimer) SetDisabled(disabled bool) { t.disabled.Store(disabled) }

func (t *CmdTimer) Disabled() bool { return t.disabled.Load() }

func (t *CmdTimer) TimeLeft(idle time.Duration) (time.Duration, bool) {
	if t.Disabled() {
		return 0, false
	}
	return t.duration - idle, true
}

func (t *CmdTimer) AbortUrgency() (time.Duration, bool) {
	if t.abortion == nil {
		return 0, false
	}
	return cmdAbortUrgency, true
}

func (t *CmdTimer) Activate() error {
	return spawn("activation", t.activation)
}

func (t *CmdTimer) Abort() error {
	return spawn("abortion", t.abortion)
}

func (t *CmdTimer) Deactivate() error {
	return spawn("deactivation", t.deactivation)
}

// spawn starts a hook command fire-and-forget. The child is reaped by a
// goroutine that owns the handle; the engine never waits on it.
func spawn(hook string, argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return &SpawnError{Hook: hook, Argv: argv, Err: err}
	}
	log.Debug("spawned hook command", "hook", hook, "pid", cmd.Process.Pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("hook command exited", "hook", hook, "error", err)
		}
	}()
	return nil
}
