package policy

// StopAt stops the engine after a specific timer in the sequence has fired.
// It backs the run-once mode, where the whole chain is invoked exactly once.
type StopAt struct {
	Base
	index int
}

// NewStopAt returns a policy that stops the chain after the timer at the
// given index has fired.
func NewStopAt(index int) *StopAt {
	return &StopAt{index: index}
}

// StopAtCompletion returns a policy that stops the chain after the last
// timer in the sequence has fired.
func StopAtCompletion() *StopAt {
	return &StopAt{index: -1}
}

func (s *StopAt) PostTimer(info TimerInfo) (Progress, error) {
	index := s.index
	if index < 0 {
		index = info.Length - 1
	}
	if info.Index >= index {
		return Stop, nil
	}
	return Continue, nil
}
