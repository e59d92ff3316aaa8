package idle

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mutterIdleMonitorDest = "org.gnome.Mutter.IdleMonitor"
	mutterIdleMonitorPath = "/org/gnome/Mutter/IdleMonitor/Core"
	mutterGetIdletime     = "org.gnome.Mutter.IdleMonitor.GetIdletime"
)

// DBusSource reads idle time from the Mutter idle monitor on the session
// bus. Works on GNOME under both X11 and Wayland.
type DBusSource struct {
	conn    *dbus.Conn
	monitor dbus.BusObject
}

// NewDBusSource connects to the session bus and binds the idle monitor
// object.
func NewDBusSource() (*DBusSource, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return &DBusSource{
		conn:    conn,
		monitor: conn.Object(mutterIdleMonitorDest, mutterIdleMonitorPath),
	}, nil
}

func (s *DBusSource) IdleTime(ctx context.Context) (time.Duration, error) {
	var millis uint64
	err := s.monitor.CallWithContext(ctx, mutterGetIdletime, 0).Store(&millis)
	if err != nil {
		return 0, fmt.Errorf("idle monitor GetIdletime: %w", err)
	}
	return time.Duration(millis) * time.Millisecond, nil
}

// Close releases the bus connection.
func (s *DBusSource) Close() error {
	return s.conn.Close()
}
