// Package state defines the per-connection state machine contract.
//
// A State is a unit of protocol logic. The connection handler invokes the current State once
// per iteration, passing itself as the Conn context, until a State returns Stop or the
// connection is cancelled. States perform I/O through Conn.Receive and Conn.Send, choose the
// next State with Conn.SetState, and end the connection by returning Stop.
//
// States are resolved by name through a Resolver. The framework calls Resolve but never builds
// protocol states itself, with the exception of the terminal Exit state.
package state

import (
	"github.com/arloliu/go-fsmsock/logger"
)

// Result is the outcome of a single State invocation.
type Result int

const (
	// Continue keeps the connection loop running.
	Continue Result = iota
	// Stop terminates the connection loop.
	Stop
)

// String returns string representation of the result.
func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// State is a unit of per-connection protocol logic.
type State interface {
	// Handle is invoked once per loop iteration with the connection as context.
	Handle(conn Conn) Result
}

// StateFunc adapts an ordinary function to the State interface.
type StateFunc func(conn Conn) Result

// Handle calls f(conn).
func (f StateFunc) Handle(conn Conn) Result { return f(conn) }

// Remover removes a connection from its owner by id.
type Remover interface {
	RemoveClient(id int)
}

// Conn is the connection context seen by a State.
type Conn interface {
	// ID returns the connection id assigned by the server.
	ID() int
	// Receive reads the next message from the peer and stores it as the current message.
	Receive() ([]byte, error)
	// Send writes b to the peer. The write is skipped silently when the connection is closed.
	Send(b []byte) error
	// Message returns the most recently received message.
	Message() []byte
	// SetState sets the State invoked on the next iteration.
	SetState(s State)
	// Stop clears the keep-running flag. The loop ends after the current iteration.
	Stop()
	// IsRunning reports whether the loop keeps running.
	IsRunning() bool
	// Remover returns the owner of the connection.
	Remover() Remover
	// Logger returns the connection logger.
	Logger() logger.Logger
}

// Resolver resolves a named State.
type Resolver interface {
	Resolve(name string) (State, error)
}
