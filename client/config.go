package client

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-fsmsock/logger"
)

const (
	// DefaultSendTimeout is the default bound of a single send.
	DefaultSendTimeout = 30 * time.Second
	// DefaultReceiveTimeout is the default bound of a single receive.
	DefaultReceiveTimeout = 30 * time.Second
	// DefaultConnectTimeout is the default bound of connect and TLS handshake.
	DefaultConnectTimeout = 30 * time.Second
)

// ClientConfig represents the configuration parameters of a Client or SecureClient.
type ClientConfig struct {
	// host is the IPv4 literal of the target server.
	host string

	// port is the TCP port of the target server.
	port int

	// sendTimeout bounds each Send. 0 disables the bound.
	// Defaults to 30 seconds.
	sendTimeout time.Duration

	// receiveTimeout bounds each Receive. 0 disables the bound.
	// Defaults to 30 seconds.
	receiveTimeout time.Duration

	// connectTimeout bounds connect and, for SecureClient, the TLS handshake.
	// Defaults to 30 seconds.
	connectTimeout time.Duration

	// keepAlive enables TCP keep-alive and the reconnect probe in Send.
	// Defaults to true.
	keepAlive bool

	// certFile is the path of the pinned certificate used by SecureClient, PEM or DER encoded.
	certFile string

	// minTLSVersion is the minimum TLS version accepted by SecureClient.
	// Defaults to TLS 1.2.
	minTLSVersion uint16

	logger logger.Logger
}

// NewClientConfig creates a client configuration targeting host:port, then applies opts.
//
// The host must be an IPv4 literal and port should be between 1 and 65535.
func NewClientConfig(host string, port int, opts ...ClientOption) (*ClientConfig, error) {
	cfg := &ClientConfig{
		sendTimeout:    DefaultSendTimeout,
		receiveTimeout: DefaultReceiveTimeout,
		connectTimeout: DefaultConnectTimeout,
		keepAlive:      true,
		minTLSVersion:  tls.VersionTLS12,
		logger:         logger.GetLogger(),
	}

	if !isIPv4(host) {
		return cfg, fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	cfg.host = host

	if port < 1 || port > 65535 {
		return cfg, errors.New("port is out of range [1, 65535]")
	}
	cfg.port = port

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// NewClientConfigFromURL creates a client configuration from a tcp://<ip>:<port> literal,
// then applies opts.
func NewClientConfigFromURL(url string, opts ...ClientOption) (*ClientConfig, error) {
	host, port, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	return NewClientConfig(host, port, opts...)
}

// Host returns the target host.
func (cfg *ClientConfig) Host() string { return cfg.host }

// Port returns the target port.
func (cfg *ClientConfig) Port() int { return cfg.port }

// Address returns the target address in host:port form.
func (cfg *ClientConfig) Address() string { return fmt.Sprintf("%s:%d", cfg.host, cfg.port) }

// IsKeepAlive reports whether keep-alive is enabled.
func (cfg *ClientConfig) IsKeepAlive() bool { return cfg.keepAlive }

// CertFile returns the pinned certificate path.
func (cfg *ClientConfig) CertFile() string { return cfg.certFile }

// ClientOption represents a functional option for configuring a ClientConfig.
type ClientOption interface {
	apply(*ClientConfig) error
}

type clientOptFunc struct {
	name      string
	applyFunc func(*ClientConfig) error
}

func (o *clientOptFunc) apply(cfg *ClientConfig) error {
	if cfg == nil {
		return ErrClientConfigNil
	}

	return o.applyFunc(cfg)
}

func newClientOptFunc(name string, f func(*ClientConfig) error) *clientOptFunc {
	return &clientOptFunc{name: name, applyFunc: f}
}

// WithSendTimeout bounds each Send. 0 disables the bound.
//
// The default value is 30 seconds.
func WithSendTimeout(val time.Duration) ClientOption {
	return newClientOptFunc("WithSendTimeout", func(cfg *ClientConfig) error {
		if val < 0 {
			return errors.New("send timeout is negative")
		}
		cfg.sendTimeout = val

		return nil
	})
}

// WithReceiveTimeout bounds each Receive. 0 disables the bound.
//
// The default value is 30 seconds.
func WithReceiveTimeout(val time.Duration) ClientOption {
	return newClientOptFunc("WithReceiveTimeout", func(cfg *ClientConfig) error {
		if val < 0 {
			return errors.New("receive timeout is negative")
		}
		cfg.receiveTimeout = val

		return nil
	})
}

// WithConnectTimeout bounds connect and the TLS handshake.
// It should be between 100 milliseconds and 10 minutes.
//
// The default value is 30 seconds.
func WithConnectTimeout(val time.Duration) ClientOption {
	return newClientOptFunc("WithConnectTimeout", func(cfg *ClientConfig) error {
		if val < 100*time.Millisecond || val > 10*time.Minute {
			return errors.New("connect timeout out of range [0.1s, 10m]")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithKeepAlive enables or disables TCP keep-alive and the reconnect probe in Send.
//
// The default value is true.
func WithKeepAlive(enable bool) ClientOption {
	return newClientOptFunc("WithKeepAlive", func(cfg *ClientConfig) error {
		cfg.keepAlive = enable
		return nil
	})
}

// WithCertFile sets the pinned certificate file used by SecureClient.
func WithCertFile(path string) ClientOption {
	return newClientOptFunc("WithCertFile", func(cfg *ClientConfig) error {
		if path == "" {
			return ErrCertFileRequired
		}
		cfg.certFile = path

		return nil
	})
}

// WithMinTLSVersion sets the minimum TLS version accepted by SecureClient.
// It should be tls.VersionTLS12 or tls.VersionTLS13.
//
// The default value is tls.VersionTLS12.
func WithMinTLSVersion(version uint16) ClientOption {
	return newClientOptFunc("WithMinTLSVersion", func(cfg *ClientConfig) error {
		if version != tls.VersionTLS12 && version != tls.VersionTLS13 {
			return fmt.Errorf("unsupported TLS version 0x%04x", version)
		}
		cfg.minTLSVersion = version

		return nil
	})
}

// WithLogger sets the logger of the client.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) ClientOption {
	return newClientOptFunc("WithLogger", func(cfg *ClientConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
