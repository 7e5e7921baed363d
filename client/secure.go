package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"sync"
	"time"

	"github.com/arloliu/go-fsmsock/internal/framing"
	"github.com/arloliu/go-fsmsock/internal/sockopt"
	"github.com/arloliu/go-fsmsock/logger"
)

// SecureClient is a TLS client that trusts a pinned certificate file.
//
// Peer validation is permissive, see NewPermissiveVerifier. Unlike Client, Receive performs a
// single read and returns what it yields.
type SecureClient struct {
	cfg    *ClientConfig
	logger logger.Logger
	roots  *x509.CertPool

	connMu sync.Mutex
	raw    net.Conn
	stream *tls.Conn

	metrics ClientMetrics
}

// NewSecureClient creates a TLS client. The certificate file configured by WithCertFile is
// loaded immediately; a missing or unreadable file, or one without a certificate, is an error.
func NewSecureClient(cfg *ClientConfig) (*SecureClient, error) {
	if cfg == nil {
		return nil, ErrClientConfigNil
	}

	roots, err := LoadCertPool(cfg.certFile)
	if err != nil {
		return nil, err
	}

	return &SecureClient{
		cfg:    cfg,
		logger: cfg.logger.With("client", "secure", "remote", cfg.Address()),
		roots:  roots,
	}, nil
}

// Open closes any existing connection, connects to the configured server and performs the
// TLS handshake. Connect and handshake are both bounded by the connect timeout.
func (c *SecureClient) Open() error {
	oldRaw, oldStream := c.swapConn(nil, nil)
	closeSecure(oldRaw, oldStream, c.logger)

	raw, err := dial(c.cfg)
	if err != nil {
		c.metrics.incOpenErrCount()
		logDialError(c.logger, err)

		return err
	}

	stream := tls.Client(raw, c.tlsConfig())

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.connectTimeout)
	defer cancel()

	if err := stream.HandshakeContext(ctx); err != nil {
		c.metrics.incOpenErrCount()
		c.logger.Error("TLS handshake failed", "method", "Open", "error", err)
		shutdown(raw, c.logger)

		return err
	}

	oldRaw, oldStream = c.swapConn(raw, stream)
	closeSecure(oldRaw, oldStream, c.logger)

	c.metrics.incOpenCount()
	c.logger.Debug("connected",
		"method", "Open",
		"local", raw.LocalAddr().String(),
		"tls_version", tls.VersionName(stream.ConnectionState().Version),
	)

	return nil
}

// Send writes b to the server through the TLS stream, with the same keep-alive and
// single-reconnect behavior as Client.Send.
func (c *SecureClient) Send(b []byte) error {
	stream := c.reconnectIfGone()
	if stream == nil {
		c.metrics.incErrCount()
		return ErrNotConnected
	}

	if err := writeWithDeadline(stream, b, c.cfg.sendTimeout); err != nil {
		c.metrics.incErrCount()
		c.logger.Debug("failed to send message", "method", "Send", "error", err)

		return err
	}
	c.metrics.incSendCount()

	return nil
}

// Receive performs a single read of at most 4096 bytes from the TLS stream.
func (c *SecureClient) Receive() ([]byte, error) {
	_, stream := c.getConn()
	if stream == nil {
		c.metrics.incErrCount()
		return nil, ErrNotConnected
	}

	if c.cfg.receiveTimeout > 0 {
		if err := stream.SetReadDeadline(time.Now().Add(c.cfg.receiveTimeout)); err != nil {
			c.metrics.incErrCount()
			return nil, err
		}
	}

	msg, err := framing.ReadOnce(stream)
	if len(msg) > 0 {
		c.metrics.incRecvCount()
	}
	if err != nil {
		c.metrics.incErrCount()
	}

	return msg, err
}

// Close closes the TLS stream and then the underlying socket. It is idempotent and always
// returns nil; teardown errors are logged.
func (c *SecureClient) Close() error {
	raw, stream := c.swapConn(nil, nil)
	if raw != nil {
		closeSecure(raw, stream, c.logger)
		c.logger.Debug("connection closed", "method", "Close")
	}

	return nil
}

// IsKeepAlive reports whether keep-alive and the reconnect probe are enabled.
func (c *SecureClient) IsKeepAlive() bool {
	return c.cfg.keepAlive
}

// IsConnected reports whether the client holds an established TLS session.
func (c *SecureClient) IsConnected() bool {
	_, stream := c.getConn()
	return stream != nil
}

// GetLogger returns the logger of the client.
func (c *SecureClient) GetLogger() logger.Logger {
	return c.logger
}

// GetMetrics returns the metrics of the client.
func (c *SecureClient) GetMetrics() *ClientMetrics {
	return &c.metrics
}

func (c *SecureClient) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: c.cfg.host,
		MinVersion: c.cfg.minTLSVersion,
		// the chain is checked by VerifyPeerCertificate with a permissive policy
		InsecureSkipVerify:    true, //nolint:gosec
		VerifyPeerCertificate: NewPermissiveVerifier(c.roots, c.cfg.host),
	}
}

func (c *SecureClient) reconnectIfGone() *tls.Conn {
	raw, stream := c.getConn()
	if !c.cfg.keepAlive || sockopt.Alive(raw) {
		return stream
	}

	c.logger.Debug("server gone, reconnect", "method", "Send")
	c.metrics.incReconnectCount()
	if err := c.Open(); err != nil {
		return nil
	}

	_, stream = c.getConn()

	return stream
}

func (c *SecureClient) getConn() (net.Conn, *tls.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	return c.raw, c.stream
}

func (c *SecureClient) swapConn(raw net.Conn, stream *tls.Conn) (net.Conn, *tls.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	oldRaw, oldStream := c.raw, c.stream
	c.raw, c.stream = raw, stream

	return oldRaw, oldStream
}

func closeSecure(raw net.Conn, stream *tls.Conn, l logger.Logger) {
	if stream != nil {
		if err := stream.Close(); err != nil && !isClosedErr(err) {
			l.Debug("failed to close TLS stream", "method", "closeSecure", "error", err)
		}
	}

	if raw != nil {
		if err := raw.Close(); err != nil && !isClosedErr(err) {
			l.Warn("failed to close connection", "method", "closeSecure", "error", err)
		}
	}
}
