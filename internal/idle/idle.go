// Package idle provides sources of elapsed user-inactivity time. The engine
// only consumes the Source capability; how idle time is measured is a
// per-platform concern kept behind it.
package idle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Source reports the duration since the last detected user input.
type Source interface {
	IdleTime(ctx context.Context) (time.Duration, error)
}

// FullscreenSource is a Source that can additionally report whether the
// foreground window is fullscreen.
type FullscreenSource interface {
	Source
	ActiveWindowFullscreen() (bool, error)
}

// New returns an idle source for the given kind: "x11", "dbus", or "auto".
// Auto prefers the X11 probe when DISPLAY is set and xprintidle resolves,
// falling back to the Mutter idle monitor over D-Bus.
func New(kind string) (Source, error) {
	switch kind {
	case "x11":
		return NewX11Source()
	case "dbus":
		return NewDBusSource()
	case "", "auto":
		if os.Getenv("DISPLAY") != "" {
			if _, err := exec.LookPath("xprintidle"); err == nil {
				return NewX11Source()
			}
		}
		return NewDBusSource()
	}
	return nil, fmt.Errorf("unknown idle source %q", kind)
}
