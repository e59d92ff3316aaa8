package socket

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lull-sh/lull/internal/log"
)

// requestBuffer bounds in-flight control messages; back-pressure on
// connections is intentional.
const requestBuffer = 4

// Request pairs a decoded command with the channel its reply must be sent
// on. The orchestrator is the sole consumer; it replies before it looks at
// anything else.
type Request struct {
	Message Message
	Reply   chan<- Reply
}

// Server accepts connections on a unix socket and hands decoded commands to
// the orchestrator over a bounded channel. It never touches timer or policy
// state itself.
type Server struct {
	path     string
	listener net.Listener
	requests chan Request
	done     chan struct{}
	group    errgroup.Group

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a server for the given socket path. Start must be
// called before Requests yields anything.
func NewServer(path string) *Server {
	return &Server{
		path:     path,
		requests: make(chan Request, requestBuffer),
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Requests returns the command channel. It is closed once the server has
// fully stopped, letting the consumer disable its socket branch for good.
func (s *Server) Requests() <-chan Request { return s.requests }

// Path returns the socket's filesystem path.
func (s *Server) Path() string { return s.path }

// Start begins listening. Any stale socket file is removed first.
func (s *Server) Start() error {
	os.Remove(s.path) // stale socket from a previous crash
	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	s.listener = listener
	s.group.Go(s.acceptLoop)
	return nil
}

// Stop closes the listener and every open connection, waits for the
// connection handlers to drain, closes the request channel, and removes the
// socket file. Safe to call once.
func (s *Server) Stop() error {
	close(s.done)
	err := s.listener.Close()
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	if werr := s.group.Wait(); err == nil {
		err = werr
	}
	close(s.requests)
	os.Remove(s.path)
	return err
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil // listener closed by Stop
			default:
				return err
			}
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.group.Go(func() error {
			s.handle(conn)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			return nil
		})
	}
}

// handle reads newline-delimited commands and writes one reply per command.
// Malformed input is reported to this connection only.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	scanner := newLineScanner(conn)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Debug("malformed socket command", "error", err)
			if werr := writeReply(conn, ErrorReply(err)); werr != nil {
				return
			}
			continue
		}

		replyCh := make(chan Reply, 1)
		select {
		case s.requests <- Request{Message: msg, Reply: replyCh}:
		case <-s.done:
			return
		}
		select {
		case reply := <-replyCh:
			if err := writeReply(conn, reply); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func newLineScanner(conn net.Conn) *bufio.Scanner {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	return scanner
}

func writeReply(conn net.Conn, reply Reply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}
