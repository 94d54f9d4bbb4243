package control

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

const requestTimeout = 5 * time.Second

// Handler executes control commands against the running daemon.
type Handler interface {
	Dump(ctx context.Context) (protocol.Snapshot, error)
	Event(ctx context.Context, ev consts.SystemEvent) error
}

// Server answers one JSON request per connection on a unix socket.
type Server struct {
	socketPath string
	handler    Handler

	mu        sync.Mutex
	l         net.Listener
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

func NewServer(path string, handler Handler) *Server {
	if path == "" {
		path = consts.DefaultControlSocket
	}
	return &Server{socketPath: path, handler: handler, done: make(chan struct{})}
}

// SocketPath returns where the server listens.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// PrepareSocket replaces any stale socket file and listens on a fresh one.
func (s *Server) PrepareSocket() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}
	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, err
	}
	// Only the daemon's user may drive it
	os.Chmod(s.socketPath, 0o700)
	return l, nil
}

// Start listens and serves in the background until ctx is done or Close is called.
func (s *Server) Start(ctx context.Context) error {
	l, err := s.PrepareSocket()
	if err != nil {
		return serrors.New(serrors.ErrCodeControlFailed, "Start", "cannot listen on "+s.socketPath, err)
	}
	s.mu.Lock()
	s.l = l
	s.mu.Unlock()
	logger.Log.Info("Control socket listening", "socket", s.socketPath)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.closeListener()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := l.Accept()
			if err != nil {
				if !errors.Is(err, net.ErrClosed) {
					logger.Log.Error("Control accept failed", "err", err)
				}
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handle(ctx, conn)
			}()
		}
	}()
	return nil
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(requestTimeout))

	var req protocol.ControlRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.reply(conn, protocol.ControlResponse{Error: "malformed request: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var resp protocol.ControlResponse
	switch req.Command {
	case "dump":
		snap, err := s.handler.Dump(ctx)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.OK = true
		resp.Snapshot = &snap
	case "event":
		if err := s.handler.Event(ctx, consts.SystemEvent(req.Event)); err != nil {
			resp.Error = err.Error()
			break
		}
		resp.OK = true
	default:
		resp.Error = "unknown command " + req.Command
	}
	logger.Log.Debug("Control request served", "command", req.Command, "ok", resp.OK)
	s.reply(conn, resp)
}

func (s *Server) reply(conn net.Conn, resp protocol.ControlResponse) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		logger.Log.Warn("Control reply failed", "err", err)
	}
}

func (s *Server) closeListener() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.l != nil {
		s.l.Close()
		s.l = nil
		os.Remove(s.socketPath)
	}
}

// Close stops accepting and waits for in-flight requests.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.closeListener()
	s.wg.Wait()
}

// Request sends one command to a running daemon.
func Request(socketPath string, req protocol.ControlRequest) (*protocol.ControlResponse, error) {
	conn, err := net.DialTimeout("unix", socketPath, requestTimeout)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeControlFailed, "Request", "cannot reach daemon at "+socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(requestTimeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, serrors.New(serrors.ErrCodeControlFailed, "Request", "cannot send request", err)
	}
	var resp protocol.ControlResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, serrors.New(serrors.ErrCodeControlFailed, "Request", "cannot read response", err)
	}
	if !resp.OK {
		return &resp, serrors.New(serrors.ErrCodeControlFailed, "Request", resp.Error, nil)
	}
	return &resp, nil
}

// Personal.AI order the ending
