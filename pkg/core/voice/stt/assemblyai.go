package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	assemblyAIStreamingURL = "wss://streaming.assemblyai.com/v3/ws"

	// DefaultSampleRate matches telephony audio.
	DefaultSampleRate = 8000
	// DefaultEncoding matches telephony audio.
	DefaultEncoding = "pcm_mulaw"
)

// AssemblyAIProvider implements the Provider interface using AssemblyAI's
// Universal-Streaming (v3) API.
type AssemblyAIProvider struct {
	apiKey  string
	baseURL string
}

// AssemblyAIOption configures the provider.
type AssemblyAIOption func(*AssemblyAIProvider)

// WithStreamingURL overrides the websocket endpoint.
func WithStreamingURL(url string) AssemblyAIOption {
	return func(p *AssemblyAIProvider) { p.baseURL = url }
}

// NewAssemblyAI creates a new AssemblyAI STT provider.
func NewAssemblyAI(apiKey string, opts ...AssemblyAIOption) *AssemblyAIProvider {
	p := &AssemblyAIProvider{
		apiKey:  apiKey,
		baseURL: assemblyAIStreamingURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *AssemblyAIProvider) Name() string {
	return "assemblyai"
}

// NewSession opens a realtime transcription session.
func (p *AssemblyAIProvider) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse streaming URL: %w", err)
	}

	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	encoding := opts.Encoding
	if encoding == "" {
		encoding = DefaultEncoding
	}

	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("encoding", encoding)
	if opts.FormatTurns {
		q.Set("format_turns", "true")
	}
	if opts.EndOfTurnConfidence > 0 {
		q.Set("end_of_turn_confidence_threshold", strconv.FormatFloat(opts.EndOfTurnConfidence, 'f', -1, 64))
	}
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", p.apiKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if len(body) > 0 {
				return nil, fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
			}
			return nil, fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &assemblyAISession{
		conn:   conn,
		events: make(chan Event, 100),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go s.readLoop()

	return s, nil
}

type assemblyAISession struct {
	conn    *websocket.Conn
	events  chan Event
	done    chan struct{}
	closed  atomic.Bool
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// assemblyAIMessage covers all v3 server message shapes. The type field
// discriminates; unused fields stay zero.
type assemblyAIMessage struct {
	Type                string  `json:"type"` // "Begin", "Turn", "Termination", "Error"
	ID                  string  `json:"id"`
	Transcript          string  `json:"transcript"`
	TurnOrder           int     `json:"turn_order"`
	EndOfTurn           bool    `json:"end_of_turn"`
	EndOfTurnConfidence float64 `json:"end_of_turn_confidence"`
	TurnIsFormatted     bool    `json:"turn_is_formatted"`
	Error               string  `json:"error"`
}

func (s *assemblyAISession) readLoop() {
	defer func() {
		select {
		case s.events <- Event{Kind: EventClosed}:
		default:
		}
		close(s.events)
		close(s.done)
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.emit(Event{Kind: EventError, Err: fmt.Errorf("read: %w", err)})
			}
			return
		}

		var msg assemblyAIMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "Begin":
			s.emit(Event{Kind: EventOpened})

		case "Turn":
			s.emit(Event{Kind: EventTurn, Turn: &Turn{
				Transcript: msg.Transcript,
				Order:      msg.TurnOrder,
				EndOfTurn:  msg.EndOfTurn,
				Confidence: msg.EndOfTurnConfidence,
			}})

		case "Termination":
			return

		case "Error":
			s.emit(Event{Kind: EventError, Err: fmt.Errorf("assemblyai: %s", msg.Error)})
		}
	}
}

func (s *assemblyAISession) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// SendAudio sends raw audio bytes as a binary frame.
func (s *assemblyAISession) SendAudio(data []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Events returns the channel of session events.
func (s *assemblyAISession) Events() <-chan Event {
	return s.events
}

// Close terminates the session.
func (s *assemblyAISession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.writeMu.Lock()
	// Ask the server to flush and terminate before dropping the socket.
	s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Terminate"}`))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	err := s.conn.Close()
	s.cancel()
	return err
}
