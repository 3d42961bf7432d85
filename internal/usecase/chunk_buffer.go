package usecase

import "sync"

// chunkBuffer accumulates captured audio chunks in arrival order. It is
// the source of truth for the final upload regardless of relay outcomes.
type chunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

func newChunkBuffer() *chunkBuffer {
	return &chunkBuffer{}
}

func (b *chunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	copied := append([]byte(nil), chunk...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, copied)
	b.size += len(copied)
}

// Bytes concatenates all chunks into one blob.
func (b *chunkBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	blob := make([]byte, 0, b.size)
	for _, chunk := range b.chunks {
		blob = append(blob, chunk...)
	}
	return blob
}

func (b *chunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
