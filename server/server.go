package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arloliu/go-fsmsock/internal/sockopt"
	"github.com/arloliu/go-fsmsock/internal/task"
	"github.com/arloliu/go-fsmsock/logger"
)

// Server accepts TCP connections and runs a state machine Handler for each of them.
type Server struct {
	id     string
	pctx   context.Context
	cfg    *ServerConfig
	logger logger.Logger

	opMu          sync.Mutex // serializes Start and Stop
	listener      net.Listener
	listenerMutex sync.Mutex
	running       atomic.Bool

	registry *registry
	taskMgr  *task.Manager

	metrics ServerMetrics
}

// NewServer creates a Server with the given context and configuration.
// The context bounds host resolution and the lifetime of every goroutine the server starts.
func NewServer(ctx context.Context, cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, ErrServerConfigNil
	}

	id := uuid.NewString()
	l := cfg.logger.With("server_id", id)

	return &Server{
		id:       id,
		pctx:     ctx,
		cfg:      cfg,
		logger:   l,
		registry: newRegistry(),
		taskMgr:  task.NewManager(ctx, l),
	}, nil
}

// ID returns the unique id of the server instance.
func (s *Server) ID() string { return s.id }

// GetLogger returns the logger of the server.
func (s *Server) GetLogger() logger.Logger { return s.logger }

// GetMetrics returns the metrics of the server.
func (s *Server) GetMetrics() *ServerMetrics { return &s.metrics }

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool { return s.running.Load() }

// ClientCount returns the number of registered connections.
func (s *Server) ClientCount() int { return s.registry.size() }

// ClientIDs returns the ids of the registered connections in ascending order.
func (s *Server) ClientIDs() []int { return s.registry.ids() }

// Client returns the handler registered under id.
func (s *Server) Client(id int) (*Handler, bool) { return s.registry.get(id) }

// Addr returns the address the server listens on, or nil if it is not listening.
func (s *Server) Addr() net.Addr {
	s.listenerMutex.Lock()
	defer s.listenerMutex.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Start binds the listening socket and starts the accept loop in the background.
//
// It does not wait for connections. When the server is already running, it is stopped first
// and the socket is bound again. Resolve, bind and listen failures are logged and returned,
// leaving the server stopped.
func (s *Server) Start() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.running.Load() {
		s.logger.Info("server is running, restart it", "method", "Start")
		s.stop()
	}

	s.logger.Debug("start server", "method", "Start",
		"host", s.cfg.host, "port", s.cfg.port, "backlog", s.cfg.backlog, "init_state", s.cfg.initState,
	)

	addr, err := s.resolveAddr()
	if err != nil {
		s.logger.Error("failed to resolve bind address", "method", "Start", "host", s.cfg.host, "error", err)
		return err
	}

	ln, err := sockopt.Listen(s.pctx, addr, s.cfg.backlog)
	if err != nil {
		s.logger.Error("failed to listen", "method", "Start", "address", addr.String(), "error", err)
		return err
	}

	s.listenerMutex.Lock()
	s.listener = ln
	s.listenerMutex.Unlock()

	s.running.Store(true)

	if err := s.taskMgr.Start("acceptLoop", s.tryAccept); err != nil {
		s.running.Store(false)
		_ = s.closeListener()
		s.logger.Error("failed to start accept loop", "method", "Start", "error", err)

		return err
	}

	s.logger.Info("server started", "method", "Start", "address", ln.Addr().String())

	return nil
}

// Stop cancels every registered connection, stops the accept loop and releases the
// listening socket. It is safe to call Stop on a stopped server. Start may be called again
// afterwards.
func (s *Server) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stop()
}

func (s *Server) stop() {
	wasRunning := s.running.Swap(false)

	s.removeAllClients()

	if err := s.closeListener(); err != nil {
		s.logger.Warn("failed to close listener", "method", "Stop", "error", err)
	}

	s.taskMgr.Stop()
	if err := s.taskMgr.Wait(s.cfg.stopTimeout); err != nil {
		s.logger.Warn("goroutines still running after stop", "method", "Stop",
			"timeout", s.cfg.stopTimeout, "task_count", s.taskMgr.Count(), "error", err,
		)
	}

	// connections accepted while the loop was shutting down
	s.removeAllClients()

	if wasRunning {
		s.logger.Info("server stopped", "method", "Stop")
	}
}

// RemoveClient cancels the connection registered under id and removes it from the registry.
// Removing an unknown or already removed id is a no-op.
func (s *Server) RemoveClient(id int) {
	h, ok := s.registry.remove(id)
	if !ok {
		return
	}

	s.logger.Debug("remove client", "method", "RemoveClient", "conn_id", id)
	h.Cancel()
	s.metrics.incRemovedCount()
}

func (s *Server) removeAllClients() {
	for _, h := range s.registry.removeAll() {
		s.logger.Debug("remove client", "method", "removeAllClients", "conn_id", h.ID())
		h.Cancel()
		s.metrics.incRemovedCount()
	}
}

// tryAccept performs exactly one Accept and turns its result into a running handler before
// returning, so at most one accept is outstanding at any time.
func (s *Server) tryAccept() bool {
	ln := s.getListener()
	if ln == nil {
		return false
	}

	s.logger.Debug("waiting for a connection", "method", "tryAccept")

	conn, err := ln.Accept()
	if err != nil {
		if !s.running.Load() || errors.Is(err, net.ErrClosed) {
			s.logger.Debug("accept loop terminated", "method", "tryAccept", "error", err)
			return false
		}

		s.metrics.incAcceptErrCount()
		s.logger.Error("failed to accept connection", "method", "tryAccept", "error", err)

		return true
	}

	s.acceptConn(conn)

	return true
}

func (s *Server) acceptConn(conn net.Conn) {
	initState, err := s.cfg.resolver.Resolve(s.cfg.initState)
	if err != nil {
		s.metrics.incResolveErrCount()
		s.logger.Error("failed to resolve initial state, drop connection", "method", "acceptConn",
			"init_state", s.cfg.initState, "remote_addr", conn.RemoteAddr().String(), "error", err,
		)
		_ = conn.Close()

		return
	}

	h := s.registry.insert(func(id int) *Handler {
		return newHandler(id, conn, s, initState)
	})
	s.metrics.incAcceptCount()

	s.logger.Debug("connection accepted", "method", "acceptConn",
		"conn_id", h.ID(), "remote_addr", conn.RemoteAddr().String(),
	)

	if err := s.taskMgr.Go("handler-"+strconv.Itoa(h.ID()), h.DoCommunicate); err != nil {
		s.logger.Warn("failed to start connection handler", "method", "acceptConn", "conn_id", h.ID(), "error", err)
		s.RemoveClient(h.ID())
	}
}

func (s *Server) getListener() net.Listener {
	s.listenerMutex.Lock()
	defer s.listenerMutex.Unlock()

	return s.listener
}

func (s *Server) closeListener() error {
	s.listenerMutex.Lock()
	defer s.listenerMutex.Unlock()

	if s.listener == nil {
		return nil
	}

	err := s.listener.Close()
	s.listener = nil

	return err
}

// resolveAddr resolves the configured host to an IPv4 endpoint. Host names resolve to their
// first IPv4 address.
func (s *Server) resolveAddr() (*net.TCPAddr, error) {
	if ip := net.ParseIP(s.cfg.host); ip != nil {
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotIPv4, s.cfg.host)
		}

		return &net.TCPAddr{IP: ip4, Port: s.cfg.port}, nil
	}

	ips, err := net.DefaultResolver.LookupIP(s.pctx, "ip4", s.cfg.host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotIPv4, s.cfg.host)
	}

	return &net.TCPAddr{IP: ips[0].To4(), Port: s.cfg.port}, nil
}
