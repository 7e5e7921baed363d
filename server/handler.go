package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-fsmsock/internal/framing"
	"github.com/arloliu/go-fsmsock/logger"
	"github.com/arloliu/go-fsmsock/state"
)

// ChunkSize is the read size of the framing heuristic used by Handler.Receive.
const ChunkSize = framing.ChunkSize

// Handler runs the state machine of one accepted connection.
//
// It owns the accepted socket. The loop in DoCommunicate invokes the current State until a
// State returns state.Stop or the keep-running flag is cleared, then the handler removes
// itself from the server and the socket is torn down.
type Handler struct {
	id           int
	conn         net.Conn
	server       *Server
	logger       logger.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration

	stateMu  sync.Mutex
	curState state.State

	msgMu sync.Mutex
	msg   []byte

	keepRunning atomic.Bool
	closed      atomic.Bool
	cancelOnce  sync.Once
}

var _ state.Conn = (*Handler)(nil)

func newHandler(id int, conn net.Conn, srv *Server, initState state.State) *Handler {
	h := &Handler{
		id:           id,
		conn:         conn,
		server:       srv,
		curState:     initState,
		readTimeout:  srv.cfg.readTimeout,
		writeTimeout: srv.cfg.writeTimeout,
		logger:       srv.logger.With("conn_id", id, "remote_addr", conn.RemoteAddr().String()),
	}
	// starts true; a Cancel issued before DoCommunicate runs must not be overwritten
	h.keepRunning.Store(true)

	return h
}

// ID returns the connection id.
func (h *Handler) ID() int { return h.id }

// Logger returns the connection logger.
func (h *Handler) Logger() logger.Logger { return h.logger }

// Remover returns the server owning the connection.
func (h *Handler) Remover() state.Remover { return h.server }

// RemoteAddr returns the address of the peer.
func (h *Handler) RemoteAddr() net.Addr { return h.conn.RemoteAddr() }

// State returns the State invoked on the next iteration.
func (h *Handler) State() state.State {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	return h.curState
}

// SetState sets the State invoked on the next iteration.
func (h *Handler) SetState(s state.State) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	h.curState = s
}

// Stop clears the keep-running flag. The loop terminates after the current iteration.
func (h *Handler) Stop() { h.keepRunning.Store(false) }

// IsRunning reports whether the loop keeps running.
func (h *Handler) IsRunning() bool { return h.keepRunning.Load() }

// IsClosed reports whether the connection has been cancelled.
func (h *Handler) IsClosed() bool { return h.closed.Load() }

// Message returns the most recently received message.
func (h *Handler) Message() []byte {
	h.msgMu.Lock()
	defer h.msgMu.Unlock()

	return h.msg
}

// DoCommunicate runs the state machine loop until it is told to stop.
//
// There is no delay between iterations; each State is responsible for blocking on I/O.
// A panic raised by a State is logged and ends the loop.
func (h *Handler) DoCommunicate() {
	defer func() {
		h.server.RemoveClient(h.id)
		h.Cancel()
	}()

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic in state", "method", "DoCommunicate", "panic", r)
		}
	}()

	h.logger.Debug("start communicate", "method", "DoCommunicate")

	for h.keepRunning.Load() {
		cur := h.State()
		if cur == nil {
			h.logger.Warn("no state to handle, stop", "method", "DoCommunicate")
			return
		}

		if cur.Handle(h) == state.Stop {
			h.keepRunning.Store(false)
		}
	}

	h.logger.Debug("communicate finished", "method", "DoCommunicate")
}

// Receive reads the next message and stores it as the current message.
//
// Data is read in ChunkSize pieces until a read returns fewer bytes than ChunkSize or zero
// bytes. A message whose length is an exact multiple of ChunkSize is only completed by a
// later short read, a zero-byte read or EOF.
func (h *Handler) Receive() ([]byte, error) {
	if h.closed.Load() {
		return nil, ErrConnCanceled
	}

	if h.readTimeout > 0 {
		if err := h.conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
			return nil, err
		}
	}

	msg, err := framing.ReadChunked(h.conn)

	h.msgMu.Lock()
	h.msg = msg
	h.msgMu.Unlock()

	if len(msg) > 0 {
		h.server.metrics.incMsgRecvCount()
	}

	return msg, err
}

// Send writes b to the peer.
//
// The write is skipped silently, returning nil, when the connection has been cancelled.
func (h *Handler) Send(b []byte) error {
	if h.closed.Load() {
		h.logger.Debug("connection closed, skip send", "method", "Send", "len", len(b))
		return nil
	}

	if h.writeTimeout > 0 {
		if err := h.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
			return err
		}
	}

	if _, err := h.conn.Write(b); err != nil {
		return err
	}
	h.server.metrics.incMsgSendCount()

	return nil
}

// Cancel shuts down both directions of the socket and closes it.
//
// It is idempotent. A Receive blocked on the socket returns once the socket is shut down.
// Errors are logged and swallowed.
func (h *Handler) Cancel() {
	h.keepRunning.Store(false)

	h.cancelOnce.Do(func() {
		h.closed.Store(true)

		if tcpConn, ok := h.conn.(*net.TCPConn); ok {
			if err := tcpConn.CloseRead(); err != nil {
				h.logger.Debug("failed to shutdown read side", "method", "Cancel", "error", err)
			}
			if err := tcpConn.CloseWrite(); err != nil {
				h.logger.Debug("failed to shutdown write side", "method", "Cancel", "error", err)
			}
		}

		if err := h.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			h.logger.Warn("failed to close connection", "method", "Cancel", "error", err)
		}

		h.logger.Debug("connection canceled", "method", "Cancel")
	})
}
