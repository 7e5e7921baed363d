package state

import "errors"

var (
	// ErrStateNotFound indicates that no State is registered under the requested name.
	ErrStateNotFound = errors.New("state not found")

	// ErrStateExists indicates that a State is already registered under the name.
	ErrStateExists = errors.New("state already registered")

	// ErrInvalidState indicates an empty state name or a nil factory.
	ErrInvalidState = errors.New("invalid state name or factory")
)
