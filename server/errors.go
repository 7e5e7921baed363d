package server

import "errors"

var (
	// ErrServerConfigNil indicates that a nil ServerConfig was provided.
	ErrServerConfigNil = errors.New("server config is nil")

	// ErrNotIPv4 indicates that the bind host does not resolve to an IPv4 address.
	ErrNotIPv4 = errors.New("host has no IPv4 address")

	// ErrConnCanceled indicates that the connection has been cancelled.
	ErrConnCanceled = errors.New("connection canceled")
)
