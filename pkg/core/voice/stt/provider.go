// Package stt provides streaming speech-to-text for live calls.
package stt

import "context"

// Provider is the interface for streaming speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// NewSession opens a realtime transcription session. Audio is sent
	// incrementally via SendAudio and results arrive on Events.
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
}

// Session is a live transcription session.
type Session interface {
	// SendAudio forwards raw audio bytes to the recognizer. The bytes must
	// match the encoding and sample rate given at session creation.
	SendAudio(data []byte) error

	// Events returns the channel of session events. It is closed when the
	// session ends, after a final Closed event.
	Events() <-chan Event

	// Close terminates the session. Safe to call more than once.
	Close() error
}

// SessionOptions configures a realtime session.
type SessionOptions struct {
	SampleRate int    // Audio sample rate in Hz (default 8000)
	Encoding   string // Audio encoding (default "pcm_mulaw")

	// EndOfTurnConfidence tunes how eagerly the recognizer declares a turn
	// finished. Zero keeps the provider default.
	EndOfTurnConfidence float64

	// FormatTurns requests formatted (punctuated, cased) final transcripts.
	FormatTurns bool
}

// EventKind discriminates session events.
type EventKind string

const (
	// EventOpened reports the session handshake completed.
	EventOpened EventKind = "opened"
	// EventTurn carries a transcript update.
	EventTurn EventKind = "turn"
	// EventError reports a recognizer-side error. The session stays open.
	EventError EventKind = "error"
	// EventClosed is the last event before the channel closes.
	EventClosed EventKind = "closed"
)

// Event is a tagged union of session outputs.
type Event struct {
	Kind EventKind
	Turn *Turn // set when Kind == EventTurn
	Err  error // set when Kind == EventError or a Closed event carries a cause
}

// Turn is a transcript update for one speaker turn. The recognizer may emit
// several updates with the same Order as the transcript grows; EndOfTurn
// marks the last one.
type Turn struct {
	Transcript string
	Order      int
	EndOfTurn  bool
	Confidence float64
}
