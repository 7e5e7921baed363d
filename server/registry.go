package server

import (
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// registry maps connection ids to their handlers.
//
// The mutex serializes id allocation with insertion and removal, so an id is assigned and
// stored as a pair. Lookups go through the concurrent map without the mutex.
type registry struct {
	mu       sync.Mutex
	nextID   int
	handlers *xsync.MapOf[int, *Handler]
}

func newRegistry() *registry {
	return &registry{handlers: xsync.NewMapOf[int, *Handler]()}
}

// insert allocates the next id, builds the handler with it and stores it.
func (r *registry) insert(build func(id int) *Handler) *Handler {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	h := build(id)
	r.handlers.Store(id, h)
	r.nextID++

	return h
}

// remove deletes the handler of id and returns it. The caller cancels it outside the lock.
func (r *registry) remove(id int) (*Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.handlers.LoadAndDelete(id)
}

// removeAll deletes every handler registered at the time of the call and returns them.
func (r *registry) removeAll() []*Handler {
	removed := make([]*Handler, 0, r.size())
	for _, id := range r.ids() {
		if h, ok := r.remove(id); ok {
			removed = append(removed, h)
		}
	}

	return removed
}

func (r *registry) get(id int) (*Handler, bool) {
	return r.handlers.Load(id)
}

func (r *registry) size() int {
	return r.handlers.Size()
}

// ids returns the registered ids in ascending order.
func (r *registry) ids() []int {
	ids := make([]int, 0, r.handlers.Size())
	r.handlers.Range(func(id int, _ *Handler) bool {
		ids = append(ids, id)
		return true
	})
	slices.Sort(ids)

	return ids
}
