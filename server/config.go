package server

import (
	"errors"
	"time"

	"github.com/arloliu/go-fsmsock/logger"
	"github.com/arloliu/go-fsmsock/state"
)

// ServerConfig represents the configuration parameters of a Server.
type ServerConfig struct {
	// host is the IPv4 literal or host name the server binds to.
	// Defaults to "0.0.0.0".
	host string

	// port is the TCP port to listen on. 0 picks an ephemeral port.
	port int

	// backlog is the maximum length of the queue of pending connections.
	// Defaults to 100.
	backlog int

	// initState is the name of the State every accepted connection starts in.
	initState string

	// resolver resolves initState for each accepted connection.
	// Defaults to a state.Registry holding only the Exit state.
	resolver state.Resolver

	// readTimeout bounds each read of a connection handler. 0 disables it.
	readTimeout time.Duration

	// writeTimeout bounds each write of a connection handler. 0 disables it.
	writeTimeout time.Duration

	// stopTimeout bounds how long Stop waits for the accept loop and connection handlers to terminate.
	// Defaults to 3 seconds.
	stopTimeout time.Duration

	logger logger.Logger
}

// NewServerConfig creates a server configuration for the given port and initial state name,
// then applies opts.
func NewServerConfig(port int, initState string, opts ...ServerOption) (*ServerConfig, error) {
	cfg := &ServerConfig{
		host:        "0.0.0.0",
		backlog:     100,
		resolver:    state.NewRegistry(),
		stopTimeout: 3 * time.Second,
		logger:      logger.GetLogger(),
	}

	if port < 0 || port > 65535 {
		return cfg, errors.New("port is out of range [0, 65535]")
	}
	cfg.port = port

	if initState == "" {
		return cfg, errors.New("initial state name is empty")
	}
	cfg.initState = initState

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Host returns the bind host.
func (cfg *ServerConfig) Host() string { return cfg.host }

// Port returns the configured port.
func (cfg *ServerConfig) Port() int { return cfg.port }

// Backlog returns the listen backlog.
func (cfg *ServerConfig) Backlog() int { return cfg.backlog }

// InitState returns the initial state name.
func (cfg *ServerConfig) InitState() string { return cfg.initState }

// ServerOption represents a functional option for configuring a ServerConfig.
type ServerOption interface {
	apply(*ServerConfig) error
}

type serverOptFunc struct {
	name      string
	applyFunc func(*ServerConfig) error
}

func (o *serverOptFunc) apply(cfg *ServerConfig) error {
	if cfg == nil {
		return ErrServerConfigNil
	}

	return o.applyFunc(cfg)
}

func newServerOptFunc(name string, f func(*ServerConfig) error) *serverOptFunc {
	return &serverOptFunc{name: name, applyFunc: f}
}

// WithHost sets the host the server binds to. Both IPv4 literals and host names are accepted;
// a host name is resolved to its first IPv4 address on Start.
//
// The default host is "0.0.0.0".
func WithHost(host string) ServerOption {
	return newServerOptFunc("WithHost", func(cfg *ServerConfig) error {
		if host == "" {
			return errors.New("host is empty")
		}
		cfg.host = host

		return nil
	})
}

// WithBacklog sets the listen backlog. It should be between 1 and 65535.
//
// The default value is 100.
func WithBacklog(backlog int) ServerOption {
	return newServerOptFunc("WithBacklog", func(cfg *ServerConfig) error {
		if backlog < 1 || backlog > 65535 {
			return errors.New("backlog out of range [1, 65535]")
		}
		cfg.backlog = backlog

		return nil
	})
}

// WithResolver sets the resolver used to create the initial state of each connection.
func WithResolver(resolver state.Resolver) ServerOption {
	return newServerOptFunc("WithResolver", func(cfg *ServerConfig) error {
		if resolver == nil {
			return errors.New("resolver is nil")
		}
		cfg.resolver = resolver

		return nil
	})
}

// WithReadTimeout bounds each Receive of a connection handler. 0 disables the bound.
//
// The default value is 0.
func WithReadTimeout(val time.Duration) ServerOption {
	return newServerOptFunc("WithReadTimeout", func(cfg *ServerConfig) error {
		if val < 0 {
			return errors.New("read timeout is negative")
		}
		cfg.readTimeout = val

		return nil
	})
}

// WithWriteTimeout bounds each Send of a connection handler. 0 disables the bound.
//
// The default value is 0.
func WithWriteTimeout(val time.Duration) ServerOption {
	return newServerOptFunc("WithWriteTimeout", func(cfg *ServerConfig) error {
		if val < 0 {
			return errors.New("write timeout is negative")
		}
		cfg.writeTimeout = val

		return nil
	})
}

// WithStopTimeout sets how long Stop waits for goroutines to terminate.
// It should be between 100 milliseconds and 60 seconds.
//
// The default value is 3 seconds.
func WithStopTimeout(val time.Duration) ServerOption {
	return newServerOptFunc("WithStopTimeout", func(cfg *ServerConfig) error {
		if val < 100*time.Millisecond || val > 60*time.Second {
			return errors.New("stop timeout out of range [0.1, 60]")
		}
		cfg.stopTimeout = val

		return nil
	})
}

// WithLogger sets the logger of the server and its connection handlers.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) ServerOption {
	return newServerOptFunc("WithLogger", func(cfg *ServerConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
