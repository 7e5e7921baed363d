package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_InsertAllocatesSequentialIDs(t *testing.T) {
	require := require.New(t)

	r := newRegistry()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.insert(func(id int) *Handler { return &Handler{id: id} })
		}()
	}
	wg.Wait()

	require.Equal(100, r.size())
	ids := r.ids()
	for i, id := range ids {
		require.Equal(i, id)
		h, ok := r.get(id)
		require.True(ok)
		require.Equal(id, h.id)
	}
}

func TestRegistry_Remove(t *testing.T) {
	require := require.New(t)

	r := newRegistry()
	for range 3 {
		r.insert(func(id int) *Handler { return &Handler{id: id} })
	}

	h, ok := r.remove(1)
	require.True(ok)
	require.Equal(1, h.id)

	_, ok = r.remove(1)
	require.False(ok)

	removed := r.removeAll()
	require.Len(removed, 2)
	require.Zero(r.size())
	require.Empty(r.removeAll())

	// ids are never reused
	h = r.insert(func(id int) *Handler { return &Handler{id: id} })
	require.Equal(3, h.id)
}
