package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockInfo identifies a running daemon. It is written next to the control
// socket so clients can discover the socket path and callers can refuse to
// start a second daemon.
type LockInfo struct {
	PID       int       `json:"pid"`
	SockPath  string    `json:"sock_path,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// IsAlive checks whether the daemon process is still running.
func (l *LockInfo) IsAlive() bool {
	process, err := os.FindProcess(l.PID)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// WriteLockFile writes the daemon lock file.
func WriteLockFile(path string, info LockInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLockFile reads the daemon lock file. Returns nil, nil if not found.
func ReadLockFile(path string) (*LockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RemoveLockFile removes the daemon lock file.
func RemoveLockFile(path string) {
	os.Remove(path)
}

// RuntimeDir returns the directory for the daemon's socket and lock files:
// $XDG_RUNTIME_DIR/lull, or a per-user directory under the system temp dir.
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "lull")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("lull-%d", os.Getuid()))
}

// DefaultSocketPath returns the control socket path used when none is
// configured.
func DefaultSocketPath() string {
	return filepath.Join(RuntimeDir(), "lull.sock")
}

// DefaultLockPath returns the lock file path.
func DefaultLockPath() string {
	return filepath.Join(RuntimeDir(), "lull.lock")
}
