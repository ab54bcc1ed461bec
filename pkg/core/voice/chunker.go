// Package voice holds audio plumbing shared by the recognition and
// synthesis sides of the call pipeline.
package voice

// DefaultChunkSize is the payload size forwarded to the recognizer.
// 800 bytes of 8 kHz mu-law is 100 ms of audio.
const DefaultChunkSize = 800

// FrameBuffer accumulates inbound audio bytes and emits fixed-size chunks.
// Telephony media frames are small (typically 160 bytes); batching them
// keeps the recognizer send rate reasonable.
type FrameBuffer struct {
	chunkSize int
	pending   []byte
}

// NewFrameBuffer creates a frame buffer emitting chunks of the given size.
// A non-positive size falls back to DefaultChunkSize.
func NewFrameBuffer(chunkSize int) *FrameBuffer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &FrameBuffer{chunkSize: chunkSize}
}

// Add appends audio bytes and returns any complete chunks, in arrival
// order. Each returned chunk is exactly chunkSize bytes and owns its own
// backing array. The remainder stays buffered for the next call.
func (b *FrameBuffer) Add(p []byte) [][]byte {
	b.pending = append(b.pending, p...)

	var chunks [][]byte
	for len(b.pending) >= b.chunkSize {
		chunk := make([]byte, b.chunkSize)
		copy(chunk, b.pending[:b.chunkSize])
		chunks = append(chunks, chunk)
		b.pending = b.pending[b.chunkSize:]
	}
	return chunks
}

// Flush returns the buffered remainder and clears the buffer. The result
// may be empty or shorter than a full chunk. The live session never calls
// this: a sub-chunk tail left when a call ends is under 100 ms of audio
// and is dropped with the stream. Flush completes the API for consumers
// that must not lose the tail, such as offline transcription of recorded
// audio.
func (b *FrameBuffer) Flush() []byte {
	if len(b.pending) == 0 {
		b.pending = nil
		return nil
	}
	out := make([]byte, len(b.pending))
	copy(out, b.pending)
	b.pending = nil
	return out
}

// Len returns the number of buffered bytes not yet emitted.
func (b *FrameBuffer) Len() int {
	return len(b.pending)
}
