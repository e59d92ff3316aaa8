// Package policy defines the decision layer that gates timer transitions.
// Any number of independently-authored policies implement Module and are
// combined, statically with Chain or dynamically with Modules, into a single
// composite consulted by the engine before and after every timer transition.
package policy

import (
	"github.com/lull-sh/lull/internal/log"
)

// Progress is the outcome of a policy check over a single timer transition.
type Progress int

const (
	// Continue raises no objection; the next policy in the chain is
	// evaluated, or the transition is allowed if this was the last one.
	Continue Progress = iota
	// Abort reverses the in-progress transition immediately. Remaining
	// policies in the chain are skipped for this call.
	Abort
	// Stop ceases evaluation of the entire timer chain. Unlike Abort it
	// means "stop processing further timers", not "undo this one".
	Stop
)

func (p Progress) String() string {
	switch p {
	case Continue:
		return "continue"
	case Abort:
		return "abort"
	case Stop:
		return "stop"
	}
	return "unknown"
}

// TimerInfo identifies which timer in the ordered sequence is being
// considered, enough for a module to apply per-timer policy.
type TimerInfo struct {
	// Index is the timer's position in the sequence. Disabled timers keep
	// their slot, so the index is stable across runtime toggles.
	Index int
	// Length is the total number of timers in the sequence.
	Length int
}

// Module is a unit of policy that may veto or permit timer transitions.
// It never issues the activation/abortion commands itself.
type Module interface {
	// PreTimer decides whether the timer may fire.
	PreTimer(info TimerInfo) (Progress, error)
	// PostTimer decides whether the consequences may stand, called after
	// the transition.
	PostTimer(info TimerInfo) (Progress, error)
	// Warning is called with a potentially recoverable error. Returning a
	// non-nil error escalates it to a fatal one.
	Warning(err error) error
	// Reset invalidates any cached state. Called when the idle counter
	// restarts from zero, e.g. after user activity.
	Reset() error
}

// Base provides default implementations for all Module hooks: permit
// everything, swallow warnings silently, nothing to reset. Embed it to
// implement only the hooks a policy cares about.
type Base struct{}

func (Base) PreTimer(TimerInfo) (Progress, error)  { return Continue, nil }
func (Base) PostTimer(TimerInfo) (Progress, error) { return Continue, nil }
func (Base) Warning(error) error                   { return nil }
func (Base) Reset() error                          { return nil }

// Null is the fallback policy installed when no user policy is. It permits
// everything and logs every warning it receives so no error is silently
// dropped.
type Null struct {
	Base
}

func (Null) Warning(err error) error {
	log.Warn("recoverable engine error", "error", err)
	return nil
}

// pair short-circuits two modules. Nesting pairs combines any fixed number
// of policies; composition is associative.
type pair struct {
	first, second Module
}

// Chain combines two modules into one. PreTimer and PostTimer evaluate the
// first module and return its result unless it is Continue, in which case
// the second module decides. Warning and Reset always reach both modules
// even when the first fails, so no module misses a reset signal; the first
// error is the one returned.
func Chain(first, second Module) Module {
	return &pair{first: first, second: second}
}

func (p *pair) PreTimer(info TimerInfo) (Progress, error) {
	progress, err := p.first.PreTimer(info)
	if err != nil || progress != Continue {
		return progress, err
	}
	return p.second.PreTimer(info)
}

func (p *pair) PostTimer(info TimerInfo) (Progress, error) {
	progress, err := p.first.PostTimer(info)
	if err != nil || progress != Continue {
		return progress, err
	}
	return p.second.PostTimer(info)
}

func (p *pair) Warning(err error) error {
	werr := p.first.Warning(err)
	if serr := p.second.Warning(err); werr == nil {
		werr = serr
	}
	return werr
}

func (p *pair) Reset() error {
	err := p.first.Reset()
	if serr := p.second.Reset(); err == nil {
		err = serr
	}
	return err
}

// Modules composes a runtime-length sequence of policies with the same
// semantics as Chain: PreTimer/PostTimer short-circuit on the first
// non-Continue result, Warning and Reset reach every element and the first
// failure is the one returned. An empty sequence permits everything.
type Modules []Module

func (m Modules) PreTimer(info TimerInfo) (Progress, error) {
	for _, module := range m {
		progress, err := module.PreTimer(info)
		if err != nil || progress != Continue {
			return progress, err
		}
	}
	return Continue, nil
}

func (m Modules) PostTimer(info TimerInfo) (Progress, error) {
	for _, module := range m {
		progress, err := module.PostTimer(info)
		if err != nil || progress != Continue {
			return progress, err
		}
	}
	return Continue, nil
}

func (m Modules) Warning(err error) error {
	var first error
	for _, module := range m {
		if werr := module.Warning(err); first == nil {
			first = werr
		}
	}
	return first
}

func (m Modules) Reset() error {
	var first error
	for _, module := range m {
		if err := module.Reset(); first == nil {
			first = err
		}
	}
	return first
}
