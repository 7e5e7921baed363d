package state

import (
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// ExitName is the name the Exit state is registered under by NewRegistry.
const ExitName = "Exit"

// Factory creates a State instance.
type Factory func() State

// Registry is a concurrency-safe Resolver mapping names to State factories.
type Registry struct {
	factories *xsync.MapOf[string, Factory]
}

var _ Resolver = (*Registry)(nil)

// NewRegistry creates a Registry with the Exit state registered under ExitName.
func NewRegistry() *Registry {
	r := &Registry{factories: xsync.NewMapOf[string, Factory]()}
	r.factories.Store(ExitName, func() State { return Exit })

	return r
}

// Register registers factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return ErrInvalidState
	}

	if _, loaded := r.factories.LoadOrStore(name, factory); loaded {
		return fmt.Errorf("%w: %s", ErrStateExists, name)
	}

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve creates the State registered under name.
func (r *Registry) Resolve(name string) (State, error) {
	factory, ok := r.factories.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, name)
	}

	s := factory()
	if s == nil {
		return nil, fmt.Errorf("%w: factory of %s returned nil", ErrInvalidState, name)
	}

	return s, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.factories.Size())
	r.factories.Range(func(name string, _ Factory) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)

	return names
}
