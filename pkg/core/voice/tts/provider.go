// Package tts provides streaming text-to-speech for live calls.
package tts

import (
	"context"
	"sync"
)

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// SynthesizeStream converts one complete reply to streaming audio.
	// Chunks arrive in playback order; the chunk channel closes when the
	// reply is fully synthesized.
	SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisStream, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice      string // Voice identifier; empty uses the provider default
	Format     string // Output encoding (default "ulaw_8000")
	SampleRate int    // Informational; encoded in Format for most providers
}

// SynthesisStream provides streaming audio output for one reply.
type SynthesisStream struct {
	chunks chan []byte
	done   chan struct{}
	err    error
	errMu  sync.Mutex
	once   sync.Once
}

// NewSynthesisStream creates a new synthesis stream.
func NewSynthesisStream() *SynthesisStream {
	return &SynthesisStream{
		chunks: make(chan []byte, 100),
		done:   make(chan struct{}),
	}
}

// Chunks returns the channel of audio chunks. It is closed when synthesis
// completes or fails; check Err after it closes.
func (s *SynthesisStream) Chunks() <-chan []byte {
	return s.chunks
}

// Err returns the stream error, if any. Valid once Chunks is closed.
func (s *SynthesisStream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close abandons the stream. Pending chunks are discarded.
func (s *SynthesisStream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Send delivers a chunk to the consumer. Returns false if the stream was
// closed.
func (s *SynthesisStream) Send(chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// SetError records a stream error.
func (s *SynthesisStream) SetError(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// FinishSending closes the chunk channel to signal completion.
func (s *SynthesisStream) FinishSending() {
	close(s.chunks)
}

// Done returns a channel closed when the consumer abandons the stream.
func (s *SynthesisStream) Done() <-chan struct{} {
	return s.done
}
