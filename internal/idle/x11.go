package idle

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// X11Source probes idle time with xprintidle and the foreground window's
// fullscreen state with xprop. Each query execs the tool fresh, so the
// source is safe for concurrent use by the engine and the control socket.
type X11Source struct {
	xprintidlePath string
	xpropPath      string
}

// NewX11Source resolves the probe binaries. xprintidle is required; xprop
// is optional and only needed for fullscreen suppression.
func NewX11Source() (*X11Source, error) {
	xprintidle, err := exec.LookPath("xprintidle")
	if err != nil {
		return nil, fmt.Errorf("x11 idle source: %w", err)
	}
	xprop, _ := exec.LookPath("xprop")
	return &X11Source{xprintidlePath: xprintidle, xpropPath: xprop}, nil
}

func (s *X11Source) IdleTime(ctx context.Context) (time.Duration, error) {
	out, err := exec.CommandContext(ctx, s.xprintidlePath).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	millis, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if millis < 0 {
		millis = 0
	}
	return time.Duration(millis) * time.Millisecond, nil
}

// ActiveWindowFullscreen reports whether the currently focused window has
// _NET_WM_STATE_FULLSCREEN set.
func (s *X11Source) ActiveWindowFullscreen() (bool, error) {
	if s.xpropPath == "" {
		return false, fmt.Errorf("xprop not found, cannot query fullscreen state")
	}
	out, err := exec.Command(s.xpropPath, "-root", "_NET_ACTIVE_WINDOW").Output()
	if err != nil {
		return false, fmt.Errorf("xprop active window: %w", err)
	}
	windowID, ok := parseActiveWindow(string(out))
	if !ok {
		return false, nil // no focused window
	}
	out, err = exec.Command(s.xpropPath, "-id", windowID, "_NET_WM_STATE").Output()
	if err != nil {
		return false, fmt.Errorf("xprop window state: %w", err)
	}
	return strings.Contains(string(out), "_NET_WM_STATE_FULLSCREEN"), nil
}

// parseActiveWindow extracts the window ID from xprop's
// "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3c00007" output.
func parseActiveWindow(out string) (string, bool) {
	idx := strings.LastIndex(out, "#")
	if idx < 0 {
		return "", false
	}
	id := strings.TrimSpace(out[idx+1:])
	if id == "" || id == "0x0" {
		return "", false
	}
	return id, true
}
