// Package engine drives the ordered timer sequence against an idle-time
// source. It owns the per-idle-cycle bookkeeping: which timers have
// activated, whether a policy aborted the chain, and how each activation is
// eventually unwound (abortion for the interrupted one, deactivation for
// the completed ones) when the idle counter resets.
package engine

import (
	"context"
	"time"

	"github.com/lull-sh/lull/internal/idle"
	"github.com/lull-sh/lull/internal/log"
	"github.com/lull-sh/lull/internal/policy"
	"github.com/lull-sh/lull/internal/timer"
)

const (
	// defaultInterval is the longest the engine sleeps between idle-time
	// probes when no timer is close to due.
	defaultInterval = time.Second
	// minSleep keeps rounding errors from turning the poll loop into a
	// busy loop.
	minSleep = 10 * time.Millisecond
)

// EventType labels an engine transition recorded through a Recorder.
type EventType string

const (
	EventActivate   EventType = "activate"
	EventAbort      EventType = "abort"
	EventDeactivate EventType = "deactivate"
	EventReset      EventType = "reset"
	EventStop       EventType = "stop"
)

// Event is one recorded engine transition. Timer is -1 for events not tied
// to a particular timer.
type Event struct {
	Type  EventType
	Timer int
	Idle  time.Duration
	At    time.Time
}

// Recorder receives engine events. Recording failures are logged, never
// fatal to the run.
type Recorder interface {
	Record(event Event) error
}

// Engine runs the timer sequence to completion. It is not safe for
// concurrent use; the orchestrator runs it on a single goroutine and all
// external influence arrives through the timers' atomic disabled flags.
type Engine struct {
	source   idle.Source
	timers   []timer.Timer
	module   policy.Module
	interval time.Duration
	recorder Recorder

	nextIndex int
	activated []int
	aborted   bool
	prevIdle  time.Duration
}

// New creates an engine over the given source, timer sequence, and composed
// policy chain. A nil module falls back to the null policy.
func New(source idle.Source, timers []timer.Timer, module policy.Module) *Engine {
	if module == nil {
		module = policy.Null{}
	}
	return &Engine{
		source:   source,
		timers:   timers,
		module:   module,
		interval: defaultInterval,
	}
}

// SetInterval overrides the base poll interval.
func (e *Engine) SetInterval(interval time.Duration) {
	if interval > 0 {
		e.interval = interval
	}
}

// SetRecorder installs an event recorder.
func (e *Engine) SetRecorder(recorder Recorder) { e.recorder = recorder }

// Run polls the idle source and steps the timer chain until a policy
// returns Stop (nil), a policy or escalated warning fails (its error), or
// ctx is cancelled (ctx.Err()). Cancellation is observed at tick
// boundaries; an in-flight probe or step is never torn down.
func (e *Engine) Run(ctx context.Context) error {
	for {
		idleTime, err := e.source.IdleTime(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		progress, wait, err := e.step(idleTime)
		if err != nil {
			return err
		}
		if progress == policy.Stop {
			log.Debug("policy chain stopped the engine")
			e.record(EventStop, -1, idleTime)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// step advances the chain for one observed idle duration and returns how
// long to sleep before the next probe.
func (e *Engine) step(idleTime time.Duration) (policy.Progress, time.Duration, error) {
	if idleTime < e.prevIdle {
		log.Debug("user activity detected", "idle", idleTime, "previous", e.prevIdle)
		if err := e.reset(idleTime); err != nil {
			return policy.Continue, 0, err
		}
	}
	e.prevIdle = idleTime

	wait := e.interval
	if !e.aborted {
	scan:
		for i := e.nextIndex; i < len(e.timers); i++ {
			t := e.timers[i]
			left, eligible := t.TimeLeft(idleTime)
			if !eligible {
				continue // disabled: skipped entirely, no module hooks
			}
			if left > 0 {
				// Thresholds are ordered by the caller; the first
				// not-yet-due timer bounds the sleep.
				if left < wait {
					wait = left
				}
				break scan
			}

			info := policy.TimerInfo{Index: i, Length: len(e.timers)}
			progress, err := e.module.PreTimer(info)
			if err != nil {
				return policy.Continue, 0, err
			}
			switch progress {
			case policy.Abort:
				if err := e.abortActive(idleTime); err != nil {
					return policy.Continue, 0, err
				}
				break scan
			case policy.Stop:
				return policy.Stop, 0, nil
			}

			log.Info("timer activated", "timer", i, "idle", idleTime)
			if err := t.Activate(); err != nil {
				if werr := e.module.Warning(err); werr != nil {
					return policy.Continue, 0, werr
				}
			}
			e.record(EventActivate, i, idleTime)
			e.activated = append(e.activated, i)
			e.nextIndex = i + 1

			progress, err = e.module.PostTimer(info)
			if err != nil {
				return policy.Continue, 0, err
			}
			switch progress {
			case policy.Abort:
				if err := e.abortActive(idleTime); err != nil {
					return policy.Continue, 0, err
				}
				break scan
			case policy.Stop:
				return policy.Stop, 0, nil
			}
		}
	}

	// While a timer with an abortion command is active, renewed activity
	// must be noticed within its urgency window.
	if urgency, ok := e.activeUrgency(); ok && urgency < wait {
		wait = urgency
	}
	if wait < minSleep {
		wait = minSleep
	}
	return policy.Continue, wait, nil
}

// reset unwinds the idle cycle after user activity: the most recent
// activation is aborted (unless a policy already did), every earlier
// activation is deactivated in order, and the policy chain drops its
// caches. Exactly one of abort/deactivate runs per activation.
func (e *Engine) reset(idleTime time.Duration) error {
	if n := len(e.activated); n > 0 {
		completed := e.activated
		if !e.aborted {
			last := e.activated[n-1]
			completed = e.activated[:n-1]
			log.Info("timer aborted", "timer", last)
			if err := e.timers[last].Abort(); err != nil {
				if werr := e.module.Warning(err); werr != nil {
					return werr
				}
			}
			e.record(EventAbort, last, idleTime)
		}
		for _, i := range completed {
			log.Info("timer deactivated", "timer", i)
			if err := e.timers[i].Deactivate(); err != nil {
				if werr := e.module.Warning(err); werr != nil {
					return werr
				}
			}
			e.record(EventDeactivate, i, idleTime)
		}
	}
	e.activated = e.activated[:0]
	e.nextIndex = 0
	e.aborted = false
	e.record(EventReset, -1, idleTime)
	return e.module.Reset()
}

// abortActive aborts the most recent activation, if any, and holds the
// chain until the next idle reset.
func (e *Engine) abortActive(idleTime time.Duration) error {
	if len(e.activated) > 0 && !e.aborted {
		last := e.activated[len(e.activated)-1]
		log.Info("timer aborted by policy", "timer", last)
		if err := e.timers[last].Abort(); err != nil {
			if werr := e.module.Warning(err); werr != nil {
				return werr
			}
		}
		e.record(EventAbort, last, idleTime)
		// The aborted activation must not be unwound again at reset.
		e.activated = e.activated[:len(e.activated)-1]
	}
	e.aborted = true
	return nil
}

// activeUrgency returns the abort urgency of the most recent activation.
func (e *Engine) activeUrgency() (time.Duration, bool) {
	if e.aborted || len(e.activated) == 0 {
		return 0, false
	}
	return e.timers[e.activated[len(e.activated)-1]].AbortUrgency()
}

func (e *Engine) record(eventType EventType, timerIndex int, idleTime time.Duration) {
	if e.recorder == nil {
		return
	}
	err := e.recorder.Record(Event{
		Type:  eventType,
		Timer: timerIndex,
		Idle:  idleTime,
		At:    time.Now(),
	})
	if err != nil {
		log.Warn("recording engine event", "type", eventType, "error", err)
	}
}
