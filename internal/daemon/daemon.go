// Package daemon is the orchestrator: it owns the timer sequence and the
// composed policy chain, runs the engine to completion on its own
// goroutine, and multiplexes that against signal delivery and control
// socket commands. All mutation of shared state happens on the main loop;
// the socket task only proposes commands.
package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/lull-sh/lull/internal/engine"
	"github.com/lull-sh/lull/internal/idle"
	"github.com/lull-sh/lull/internal/log"
	"github.com/lull-sh/lull/internal/policy"
	"github.com/lull-sh/lull/internal/socket"
	"github.com/lull-sh/lull/internal/timer"
)

// Daemon multiplexes engine completion, signals, and socket commands, and
// shuts down deterministically exactly once on every exit path.
type Daemon struct {
	source idle.Source
	timers []*timer.CmdTimer
	engine *engine.Engine

	server   *socket.Server
	lockPath string

	// signals overrides the notify channel; tests inject one.
	signals chan os.Signal

	shutdownOnce sync.Once
}

// New builds a daemon over the given source, timer sequence, and composed
// policy chain.
func New(source idle.Source, timers []*timer.CmdTimer, module policy.Module) *Daemon {
	engineTimers := make([]timer.Timer, len(timers))
	for i, t := range timers {
		engineTimers[i] = t
	}
	return &Daemon{
		source: source,
		timers: timers,
		engine: engine.New(source, engineTimers, module),
	}
}

// Engine exposes the underlying engine for configuration (poll interval,
// event recorder) before Run.
func (d *Daemon) Engine() *engine.Engine { return d.engine }

// SetSocketPath enables the control socket at the given path.
func (d *Daemon) SetSocketPath(path string) {
	d.server = socket.NewServer(path)
}

// SetLockPath enables the lock file at the given path.
func (d *Daemon) SetLockPath(path string) {
	d.lockPath = path
}

// SetSignals overrides the signal channel. Only used by tests; a closed
// channel exercises the handler-gone path.
func (d *Daemon) SetSignals(ch chan os.Signal) {
	d.signals = ch
}

// Run is the main loop. It returns nil on clean shutdown (signal, quit
// command, or natural engine completion) and the fatal error otherwise.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := d.signals
	notified := false
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		notified = true
	}

	if d.lockPath != "" {
		if existing, err := ReadLockFile(d.lockPath); err == nil && existing != nil && existing.IsAlive() {
			if notified {
				signal.Stop(sigCh)
			}
			return &AlreadyRunningError{PID: existing.PID}
		}
		sockPath := ""
		if d.server != nil {
			sockPath = d.server.Path()
		}
		if err := WriteLockFile(d.lockPath, LockInfo{PID: os.Getpid(), SockPath: sockPath}); err != nil {
			if notified {
				signal.Stop(sigCh)
			}
			return err
		}
	}

	var requests <-chan socket.Request
	serverStarted := false
	if d.server != nil {
		if err := d.server.Start(); err != nil {
			if notified {
				signal.Stop(sigCh)
			}
			RemoveLockFile(d.lockPath)
			return err
		}
		serverStarted = true
		requests = d.server.Requests()
		log.Info("control socket listening", "path", d.server.Path())
	}

	engineCh := make(chan error, 1)
	go func() { engineCh <- d.engine.Run(ctx) }()
	engineDone := false

	var runErr error
loop:
	for {
		select {
		case req, ok := <-requests:
			if !ok {
				// Sending half gone; never select this branch again.
				log.Warn("control socket channel closed")
				requests = nil
				continue
			}
			if quit := d.handleRequest(ctx, req); quit {
				log.Info("quit command received, shutting down")
				break loop
			}
		case sig, ok := <-sigCh:
			if !ok {
				// Handler gone; mirror the socket case.
				log.Warn("signal channel closed")
				sigCh = nil
				continue
			}
			log.Info("signal received, shutting down", "signal", sig.String())
			break loop
		case err := <-engineCh:
			engineDone = true
			if err != nil && !errors.Is(err, context.Canceled) {
				runErr = err
			}
			break loop
		}
	}

	shutdownErr := d.shutdown(cancel, engineCh, engineDone, sigCh, notified, serverStarted)
	if runErr == nil {
		runErr = shutdownErr
	}
	return runErr
}

// shutdown runs the teardown sequence exactly once: stop signal delivery,
// cancel the engine and let it observe its next tick boundary, stop the
// socket server (waiting for its goroutines), and remove the lock and
// socket files last.
func (d *Daemon) shutdown(cancel context.CancelFunc, engineCh <-chan error, engineDone bool, sigCh chan os.Signal, notified, serverStarted bool) error {
	var err error
	d.shutdownOnce.Do(func() {
		if notified && sigCh != nil {
			signal.Stop(sigCh)
		}
		cancel()
		if !engineDone {
			if engineErr := <-engineCh; engineErr != nil && !errors.Is(engineErr, context.Canceled) {
				err = engineErr
			}
		}
		if serverStarted {
			if stopErr := d.server.Stop(); stopErr != nil && err == nil {
				err = stopErr
			}
		}
		if d.lockPath != "" {
			RemoveLockFile(d.lockPath)
		}
		log.Debug("shutdown complete")
	})
	return err
}

// handleRequest applies one socket command, sends its reply, and reports
// whether the daemon should shut down. The reply channel is buffered, so
// delivery happens before the loop re-evaluates.
func (d *Daemon) handleRequest(ctx context.Context, req socket.Request) bool {
	msg := req.Message
	log.Debug("socket command", "kind", msg.Kind)
	quit := false
	var reply socket.Reply

	switch msg.Kind {
	case socket.KindSetDisabled:
		if msg.Timer < 0 || msg.Timer >= len(d.timers) {
			reply = socket.ErrorReply(&TimerIndexError{Index: msg.Timer, Length: len(d.timers)})
			break
		}
		d.timers[msg.Timer].SetDisabled(msg.Disabled)
		log.Info("timer disabled flag set", "timer", msg.Timer, "disabled", msg.Disabled)
		reply = socket.Reply{OK: true}

	case socket.KindGetIdleTime:
		idleTime, err := d.source.IdleTime(ctx)
		if err != nil {
			reply = socket.ErrorReply(err)
			break
		}
		millis := idleTime.Milliseconds()
		reply = socket.Reply{OK: true, IdleMS: &millis}

	case socket.KindStatus:
		statuses := make([]socket.TimerStatus, len(d.timers))
		for i, t := range d.timers {
			statuses[i] = socket.TimerStatus{
				Index:      i,
				DurationMS: t.Duration().Milliseconds(),
				Activation: activationSummary(t),
				Disabled:   t.Disabled(),
			}
		}
		reply = socket.Reply{OK: true, Timers: statuses}

	case socket.KindQuit:
		reply = socket.Reply{OK: true}
		quit = true

	default:
		reply = socket.ErrorReply(&UnknownCommandError{Kind: msg.Kind})
	}

	req.Reply <- reply
	return quit
}

func activationSummary(t *timer.CmdTimer) string {
	argv := t.Activation()
	if len(argv) == 0 {
		return ""
	}
	// Shell timers are ["/bin/sh", "-c", command]; show just the command.
	if len(argv) == 3 && argv[0] == "/bin/sh" && argv[1] == "-c" {
		return argv[2]
	}
	return argv[0]
}
