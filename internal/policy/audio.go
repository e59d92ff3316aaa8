package policy

import (
	"fmt"
	"os/exec"
	"strings"
)

// NotWhenAudio suppresses timers while audio is playing. The result is
// never cached: playback can start or stop without user input, so it must
// be probed on every check.
type NotWhenAudio struct {
	Base
	probe func() (bool, error)
}

// NewNotWhenAudio returns a policy backed by the given playback probe.
// A nil probe defaults to querying the PulseAudio server via pactl.
func NewNotWhenAudio(probe func() (bool, error)) *NotWhenAudio {
	if probe == nil {
		probe = pulsePlaying
	}
	return &NotWhenAudio{probe: probe}
}

func (n *NotWhenAudio) PreTimer(TimerInfo) (Progress, error) {
	playing, err := n.probe()
	if err != nil {
		return Continue, err
	}
	if playing {
		return Abort, nil
	}
	return Continue, nil
}

// pulsePlaying reports whether any PulseAudio sink input is actively
// playing, i.e. present and not corked.
func pulsePlaying() (bool, error) {
	out, err := exec.Command("pactl", "list", "sink-inputs").Output()
	if err != nil {
		return false, fmt.Errorf("pactl: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "Corked: no" {
			return true
		}
	}
	return false
}
