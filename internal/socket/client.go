package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Client talks to a running daemon over its control socket.
type Client struct {
	path string
}

// NewClient creates a client for the given socket path.
func NewClient(path string) *Client {
	return &Client{path: path}
}

// do sends one command and reads its reply. Each call uses a fresh
// connection; the protocol is one line out, one line back.
func (c *Client) do(ctx context.Context, msg Message) (Reply, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return Reply{}, fmt.Errorf("connecting to daemon: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return Reply{}, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return Reply{}, fmt.Errorf("sending command: %w", err)
	}

	scanner := newLineScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Reply{}, fmt.Errorf("reading reply: %w", err)
		}
		return Reply{}, errors.New("daemon closed the connection without replying")
	}
	var reply Reply
	if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
		return Reply{}, fmt.Errorf("decoding reply: %w", err)
	}
	if !reply.OK {
		return reply, fmt.Errorf("daemon refused command: %s", reply.Error)
	}
	return reply, nil
}

// SetDisabled flips a timer's disabled flag by sequence index.
func (c *Client) SetDisabled(ctx context.Context, index int, disabled bool) error {
	_, err := c.do(ctx, Message{Kind: KindSetDisabled, Timer: index, Disabled: disabled})
	return err
}

// IdleTime returns the daemon's current idle duration.
func (c *Client) IdleTime(ctx context.Context) (time.Duration, error) {
	reply, err := c.do(ctx, Message{Kind: KindGetIdleTime})
	if err != nil {
		return 0, err
	}
	if reply.IdleMS == nil {
		return 0, errors.New("daemon reply carried no idle time")
	}
	return time.Duration(*reply.IdleMS) * time.Millisecond, nil
}

// Status lists the daemon's timers.
func (c *Client) Status(ctx context.Context) ([]TimerStatus, error) {
	reply, err := c.do(ctx, Message{Kind: KindStatus})
	if err != nil {
		return nil, err
	}
	return reply.Timers, nil
}

// Quit asks the daemon to shut down.
func (c *Client) Quit(ctx context.Context) error {
	_, err := c.do(ctx, Message{Kind: KindQuit})
	return err
}
