package policy

// NotWhenFullscreen suppresses timers while the foreground window is
// fullscreen. Useful for preventing a lockscreen when watching videos.
//
// The query result is cached for the duration of an idle cycle: a window
// cannot enter or leave fullscreen without user input, and user input resets
// the idle counter, so the cache is invalidated exactly when it can go stale.
type NotWhenFullscreen struct {
	Base
	query  func() (bool, error)
	cached bool
	state  bool
}

// NewNotWhenFullscreen returns a policy backed by the given fullscreen
// query, typically an idle source's ActiveWindowFullscreen method.
func NewNotWhenFullscreen(query func() (bool, error)) *NotWhenFullscreen {
	return &NotWhenFullscreen{query: query}
}

func (n *NotWhenFullscreen) PreTimer(TimerInfo) (Progress, error) {
	if !n.cached {
		fullscreen, err := n.query()
		if err != nil {
			return Continue, err
		}
		n.state = fullscreen
		n.cached = true
	}
	if n.state {
		return Abort, nil
	}
	return Continue, nil
}

func (n *NotWhenFullscreen) Reset() error {
	n.cached = false
	return nil
}
