package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkPool(t *testing.T) {
	assert := assert.New(t)

	t.Run("Get and Put", func(t *testing.T) {
		buf := GetChunk()
		assert.Len(*buf, ChunkSize)

		(*buf)[0] = 0xff
		*buf = (*buf)[:10]
		PutChunk(buf)

		buf2 := GetChunk()
		assert.Len(*buf2, ChunkSize)
		PutChunk(buf2)
	})

	t.Run("Reject small buffer", func(t *testing.T) {
		small := make([]byte, 16)
		PutChunk(&small)
		PutChunk(nil)

		buf := GetChunk()
		assert.Len(*buf, ChunkSize)
	})

	t.Run("Concurrency", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				buf := GetChunk()
				defer PutChunk(buf)
				(*buf)[ChunkSize-1] = 1
			}()
		}
		wg.Wait()
	})
}
