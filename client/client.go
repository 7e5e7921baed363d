package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/arloliu/go-fsmsock/internal/framing"
	"github.com/arloliu/go-fsmsock/internal/sockopt"
	"github.com/arloliu/go-fsmsock/logger"
)

// Transport is the common contract of Client and SecureClient.
type Transport interface {
	// Open connects to the configured server, closing any existing connection first.
	Open() error
	// Send writes b to the server.
	Send(b []byte) error
	// Receive reads one message from the server.
	Receive() ([]byte, error)
	// Close closes the connection. It is a no-op when not connected.
	Close() error
	// IsKeepAlive reports whether keep-alive and the reconnect probe are enabled.
	IsKeepAlive() bool
}

var (
	_ Transport = (*Client)(nil)
	_ Transport = (*SecureClient)(nil)
)

// Client is a plain TCP client.
//
// Send transparently reconnects once when keep-alive is enabled and the server went away.
// Receive uses the same chunk framing as the server-side handler: a message ends at the
// first read that returns fewer than 4096 bytes.
type Client struct {
	cfg    *ClientConfig
	logger logger.Logger

	connMu sync.Mutex
	conn   net.Conn

	metrics ClientMetrics
}

// NewClient creates a plain client. The client is not connected until Open or Send is called.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, ErrClientConfigNil
	}

	return &Client{
		cfg:    cfg,
		logger: cfg.logger.With("client", "plain", "remote", cfg.Address()),
	}, nil
}

// Open closes any existing connection and connects to the configured server.
//
// Errors are logged and returned; the client is left disconnected on failure.
func (c *Client) Open() error {
	if old := c.swapConn(nil); old != nil {
		shutdown(old, c.logger)
	}

	conn, err := dial(c.cfg)
	if err != nil {
		c.metrics.incOpenErrCount()
		logDialError(c.logger, err)

		return err
	}

	if old := c.swapConn(conn); old != nil {
		shutdown(old, c.logger)
	}
	c.metrics.incOpenCount()
	c.logger.Debug("connected", "method", "Open", "local", conn.LocalAddr().String())

	return nil
}

// Send writes b to the server.
//
// When keep-alive is enabled the connection is probed first, and if the server went away
// Open is called exactly once before writing. ErrNotConnected is returned when there is no
// connection to write to.
func (c *Client) Send(b []byte) error {
	conn := c.reconnectIfGone()
	if conn == nil {
		c.metrics.incErrCount()
		return ErrNotConnected
	}

	if err := writeWithDeadline(conn, b, c.cfg.sendTimeout); err != nil {
		c.metrics.incErrCount()
		c.logger.Debug("failed to send message", "method", "Send", "error", err)

		return err
	}
	c.metrics.incSendCount()

	return nil
}

// Receive reads one chunk-framed message.
//
// An empty message with io.EOF is returned when the server closed the connection.
func (c *Client) Receive() ([]byte, error) {
	conn := c.getConn()
	if conn == nil {
		c.metrics.incErrCount()
		return nil, ErrNotConnected
	}

	if c.cfg.receiveTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(c.cfg.receiveTimeout)); err != nil {
			c.metrics.incErrCount()
			return nil, err
		}
	}

	msg, err := framing.ReadChunked(conn)
	if len(msg) > 0 {
		c.metrics.incRecvCount()
	}
	if err != nil {
		c.metrics.incErrCount()
	}

	return msg, err
}

// Close shuts down and closes the connection. It is idempotent and always returns nil;
// teardown errors are logged.
func (c *Client) Close() error {
	if conn := c.swapConn(nil); conn != nil {
		shutdown(conn, c.logger)
		c.logger.Debug("connection closed", "method", "Close")
	}

	return nil
}

// IsKeepAlive reports whether keep-alive and the reconnect probe are enabled.
func (c *Client) IsKeepAlive() bool {
	return c.cfg.keepAlive
}

// IsConnected reports whether the client holds an open connection.
func (c *Client) IsConnected() bool {
	return c.getConn() != nil
}

// GetLogger returns the logger of the client.
func (c *Client) GetLogger() logger.Logger {
	return c.logger
}

// GetMetrics returns the metrics of the client.
func (c *Client) GetMetrics() *ClientMetrics {
	return &c.metrics
}

func (c *Client) reconnectIfGone() net.Conn {
	conn := c.getConn()
	if !c.cfg.keepAlive || sockopt.Alive(conn) {
		return conn
	}

	c.logger.Debug("server gone, reconnect", "method", "Send")
	c.metrics.incReconnectCount()
	if err := c.Open(); err != nil {
		return nil
	}

	return c.getConn()
}

func (c *Client) getConn() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	return c.conn
}

func (c *Client) swapConn(conn net.Conn) net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	old := c.conn
	c.conn = conn

	return old
}

func dial(cfg *ClientConfig) (net.Conn, error) {
	dialer := sockopt.NewDialer(cfg.connectTimeout, cfg.keepAlive)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.connectTimeout)
	defer cancel()

	return dialer.DialContext(ctx, "tcp4", cfg.Address())
}

func logDialError(l logger.Logger, err error) {
	var opErr *net.OpError
	if errors.As(err, &opErr) || errors.Is(err, context.DeadlineExceeded) {
		l.Debug("failed to connect", "method", "Open", "error", err)
		return
	}

	l.Error("failed to open connection", "method", "Open", "error", err)
}

func writeWithDeadline(conn net.Conn, b []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}

	_, err := conn.Write(b)

	return err
}

// shutdown shuts down both directions of conn and closes it, logging errors.
func shutdown(conn net.Conn, l logger.Logger) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.CloseRead(); err != nil && !isClosedErr(err) {
			l.Debug("failed to shutdown read side", "method", "shutdown", "error", err)
		}
		if err := tcpConn.CloseWrite(); err != nil && !isClosedErr(err) {
			l.Debug("failed to shutdown write side", "method", "shutdown", "error", err)
		}
	}

	if err := conn.Close(); err != nil && !isClosedErr(err) {
		l.Warn("failed to close connection", "method", "shutdown", "error", err)
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ENOTCONN)
}
