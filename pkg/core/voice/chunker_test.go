package voice

import (
	"bytes"
	"testing"
)

func fill(n int, v byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = v
	}
	return p
}

func TestFrameBuffer_BelowThresholdEmitsNothing(t *testing.T) {
	b := NewFrameBuffer(800)

	if chunks := b.Add(fill(799, 1)); chunks != nil {
		t.Fatalf("got %d chunks, want none", len(chunks))
	}
	if b.Len() != 799 {
		t.Fatalf("pending = %d, want 799", b.Len())
	}
}

func TestFrameBuffer_CrossingThresholdEmitsOneChunk(t *testing.T) {
	b := NewFrameBuffer(800)

	b.Add(fill(799, 1))
	chunks := b.Add(fill(5, 2))

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if len(chunks[0]) != 800 {
		t.Fatalf("chunk size = %d, want 800", len(chunks[0]))
	}
	if b.Len() != 4 {
		t.Fatalf("pending = %d, want 4", b.Len())
	}
	// The chunk must be the first 800 bytes in arrival order.
	if !bytes.Equal(chunks[0][:799], fill(799, 1)) || chunks[0][799] != 2 {
		t.Fatal("chunk bytes out of order")
	}
}

func TestFrameBuffer_ExactThreshold(t *testing.T) {
	b := NewFrameBuffer(800)

	chunks := b.Add(fill(800, 3))
	if len(chunks) != 1 || len(chunks[0]) != 800 {
		t.Fatalf("got %v, want one 800-byte chunk", chunks)
	}
	if b.Len() != 0 {
		t.Fatalf("pending = %d, want 0", b.Len())
	}
}

func TestFrameBuffer_MultipleChunksPerAdd(t *testing.T) {
	b := NewFrameBuffer(800)

	chunks := b.Add(fill(2000, 4))
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if b.Len() != 400 {
		t.Fatalf("pending = %d, want 400", b.Len())
	}
}

func TestFrameBuffer_ChunkOwnsItsBytes(t *testing.T) {
	b := NewFrameBuffer(4)

	src := []byte{1, 2, 3, 4, 5}
	chunks := b.Add(src)
	src[0] = 99

	if chunks[0][0] != 1 {
		t.Fatal("chunk aliases caller buffer")
	}

	// Later adds must not corrupt an already emitted chunk.
	b.Add(fill(8, 7))
	if !bytes.Equal(chunks[0], []byte{1, 2, 3, 4}) {
		t.Fatal("chunk mutated by later Add")
	}
}

func TestFrameBuffer_Flush(t *testing.T) {
	b := NewFrameBuffer(800)

	b.Add(fill(10, 5))
	out := b.Flush()
	if !bytes.Equal(out, fill(10, 5)) {
		t.Fatalf("flush = %v", out)
	}
	if b.Len() != 0 {
		t.Fatalf("pending after flush = %d, want 0", b.Len())
	}
	if b.Flush() != nil {
		t.Fatal("second flush should be nil")
	}
}

func TestFrameBuffer_DefaultSize(t *testing.T) {
	b := NewFrameBuffer(0)
	if b.chunkSize != DefaultChunkSize {
		t.Fatalf("chunkSize = %d, want %d", b.chunkSize, DefaultChunkSize)
	}
}
