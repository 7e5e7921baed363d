package pool

import "sync"

// ChunkSize is the size of the read buffers handed out by GetChunk.
const ChunkSize = 4096

var chunkPool = sync.Pool{New: func() any {
	buf := make([]byte, ChunkSize)
	return &buf
}}

// GetChunk returns a ChunkSize byte buffer from the pool.
//
// Return the buffer to the pool with PutChunk once its content has been copied out.
func GetChunk() *[]byte {
	buf, _ := chunkPool.Get().(*[]byte)
	if buf == nil || cap(*buf) < ChunkSize {
		b := make([]byte, ChunkSize)
		return &b
	}
	*buf = (*buf)[:ChunkSize]

	return buf
}

// PutChunk returns buf to the pool. buf cannot be accessed after this call.
func PutChunk(buf *[]byte) {
	if buf == nil || cap(*buf) < ChunkSize {
		return
	}
	chunkPool.Put(buf)
}
