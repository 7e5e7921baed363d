// Package framing implements the chunk-boundary heuristic used to decide where a message
// received from a stream socket ends.
//
// A message is read in ChunkSize pieces and is considered complete as soon as a read returns
// fewer bytes than ChunkSize, or zero bytes. There is no length prefix: a message whose total
// length is an exact multiple of ChunkSize is not recognized as complete until more data, a
// short read or a zero-byte read arrives.
package framing

import (
	"bytes"
	"errors"
	"io"

	"github.com/arloliu/go-fsmsock/internal/pool"
)

// ChunkSize is the size of a single read.
const ChunkSize = pool.ChunkSize

// ReadChunked reads from r until a short or zero-byte read and returns the accumulated bytes.
//
// io.EOF is only returned when the peer closed the stream before any byte of the message
// was read. Bytes accumulated before an EOF are returned with a nil error; bytes accumulated
// before any other error are returned together with that error.
func ReadChunked(r io.Reader) ([]byte, error) {
	chunk := pool.GetChunk()
	defer pool.PutChunk(chunk)

	var msg bytes.Buffer
	for {
		n, err := r.Read(*chunk)
		if n > 0 {
			msg.Write((*chunk)[:n])
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if msg.Len() == 0 {
					return []byte{}, io.EOF
				}

				return msg.Bytes(), nil
			}

			return msg.Bytes(), err
		}

		if n < ChunkSize {
			return msg.Bytes(), nil
		}
	}
}

// ReadOnce performs a single read of at most ChunkSize bytes and returns what it yields.
func ReadOnce(r io.Reader) ([]byte, error) {
	chunk := pool.GetChunk()
	defer pool.PutChunk(chunk)

	n, err := r.Read(*chunk)
	msg := make([]byte, n)
	copy(msg, (*chunk)[:n])

	return msg, err
}
