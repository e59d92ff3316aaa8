// Package socket implements the daemon's control surface: a unix-domain
// socket carrying newline-delimited JSON commands, each answered with
// exactly one JSON reply, plus the matching client.
package socket

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Command kinds. A command is encoded as a single-key object; set_disabled
// carries its arguments as a [index, disabled] pair.
const (
	KindSetDisabled = "set_disabled"
	KindGetIdleTime = "get_idle_time"
	KindStatus      = "status"
	KindQuit        = "quit"
)

// Message is one decoded control command.
type Message struct {
	Kind     string
	Timer    int
	Disabled bool
}

func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindSetDisabled:
		return json.Marshal(map[string][2]any{
			KindSetDisabled: {m.Timer, m.Disabled},
		})
	case KindGetIdleTime, KindStatus, KindQuit:
		return json.Marshal(map[string]any{m.Kind: nil})
	}
	return nil, fmt.Errorf("unknown command kind %q", m.Kind)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return errors.New("expected exactly one command key")
	}
	for kind, value := range raw {
		switch kind {
		case KindSetDisabled:
			var args [2]json.RawMessage
			if err := json.Unmarshal(value, &args); err != nil {
				return fmt.Errorf("set_disabled arguments: %w", err)
			}
			if args[0] == nil || args[1] == nil {
				return errors.New("set_disabled wants [index, disabled]")
			}
			if err := json.Unmarshal(args[0], &m.Timer); err != nil {
				return fmt.Errorf("set_disabled index: %w", err)
			}
			if err := json.Unmarshal(args[1], &m.Disabled); err != nil {
				return fmt.Errorf("set_disabled flag: %w", err)
			}
		case KindGetIdleTime, KindStatus, KindQuit:
		default:
			return fmt.Errorf("unknown command %q", kind)
		}
		m.Kind = kind
	}
	return nil
}

// TimerStatus describes one timer in a status reply.
type TimerStatus struct {
	Index      int    `json:"index"`
	DurationMS int64  `json:"duration_ms"`
	Activation string `json:"activation,omitempty"`
	Disabled   bool   `json:"disabled"`
}

// Reply is the single response sent for each command.
type Reply struct {
	OK     bool          `json:"ok"`
	Error  string        `json:"error,omitempty"`
	IdleMS *int64        `json:"idle_ms,omitempty"`
	Timers []TimerStatus `json:"timers,omitempty"`
}

// ErrorReply builds a failure reply for a single connection; protocol
// errors never escalate past it.
func ErrorReply(err error) Reply {
	return Reply{OK: false, Error: err.Error()}
}
