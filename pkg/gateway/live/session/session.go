// Package session coordinates one live call: telephony frames in, dialogue
// turns through the model, synthesized audio back out.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-go/frontdesk/pkg/core/dialogue"
	"github.com/vango-go/frontdesk/pkg/core/voice"
	"github.com/vango-go/frontdesk/pkg/core/voice/stt"
	"github.com/vango-go/frontdesk/pkg/core/voice/tts"
	"github.com/vango-go/frontdesk/pkg/gateway/live/protocol"
)

// State is the call session lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateConnected
	StateStreaming
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// wsConn is the subset of the websocket connection the session uses.
// *websocket.Conn satisfies it.
type wsConn interface {
	wsWriter
	ReadMessage() (int, []byte, error)
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
}

// Dialogue produces one spoken reply per finalized caller turn.
type Dialogue interface {
	Respond(ctx context.Context, utterance string) dialogue.Outcome
}

// Config carries the per-session tunables.
type Config struct {
	ChunkBytes          int
	SampleRate          int
	Encoding            string
	EndOfTurnConfidence float64
	FormatTurns         bool

	Voice       string
	AudioFormat string

	ReadLimit    int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
	QueueSize    int
}

func (c *Config) applyDefaults() {
	if c.ChunkBytes <= 0 {
		c.ChunkBytes = voice.DefaultChunkSize
	}
	if c.SampleRate <= 0 {
		c.SampleRate = stt.DefaultSampleRate
	}
	if c.Encoding == "" {
		c.Encoding = stt.DefaultEncoding
	}
	if c.AudioFormat == "" {
		c.AudioFormat = tts.DefaultOutputFormat
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 1 << 20
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
}

// Dependencies wires a call session. Conn, STT, TTS, and NewDialogue are
// required.
type Dependencies struct {
	Conn   wsConn
	Logger *slog.Logger
	STT    stt.Provider
	TTS    tts.Provider

	// NewDialogue builds the dialogue engine for one call once the caller
	// identity arrives with the start event.
	NewDialogue func(caller string) Dialogue

	Config Config
}

// CallSession drives one telephony media stream end to end.
type CallSession struct {
	id     string
	conn   wsConn
	logger *slog.Logger
	stt    stt.Provider
	tts    tts.Provider

	newDialogue func(caller string) Dialogue
	cfg         Config

	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32
	frames chan outboundFrame
}

// New validates dependencies and builds a session in the idle state.
func New(ctx context.Context, deps Dependencies) (*CallSession, error) {
	if deps.Conn == nil {
		return nil, errors.New("session: connection is required")
	}
	if deps.STT == nil {
		return nil, errors.New("session: speech-to-text provider is required")
	}
	if deps.TTS == nil {
		return nil, errors.New("session: text-to-speech provider is required")
	}
	if deps.NewDialogue == nil {
		return nil, errors.New("session: dialogue factory is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Config.applyDefaults()

	sessionCtx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	s := &CallSession{
		id:          id,
		conn:        deps.Conn,
		logger:      deps.Logger.With("session_id", id),
		stt:         deps.STT,
		tts:         deps.TTS,
		newDialogue: deps.NewDialogue,
		cfg:         deps.Config,
		ctx:         sessionCtx,
		cancel:      cancel,
		frames:      make(chan outboundFrame, deps.Config.QueueSize),
	}
	s.state.Store(int32(StateIdle))
	return s, nil
}

// ID returns the session identifier.
func (s *CallSession) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *CallSession) State() State { return State(s.state.Load()) }

func (s *CallSession) setState(st State) { s.state.Store(int32(st)) }

// Cancel aborts the session from outside.
func (s *CallSession) Cancel() { s.cancel() }

type inboundFrame struct {
	data []byte
	err  error
}

type respondResult struct {
	turnID  int
	outcome dialogue.Outcome
}

type speakResult struct {
	turnID   int
	terminal bool
	err      error
}

// Run drives the session until the caller hangs up, the agent ends the call,
// or an unrecoverable transport error occurs. It blocks until all session
// goroutines have finished.
func (s *CallSession) Run() error {
	defer s.cancel()
	defer s.setState(StateClosed)
	s.setState(StateConnected)

	s.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	readCh := make(chan inboundFrame, 64)
	go s.readLoop(readCh)

	writer := &outboundWriter{ws: s.conn, ctx: s.ctx, cfg: s.cfg, frames: s.frames}
	writerErrCh := make(chan error, 1)
	go func() { writerErrCh <- writer.Run() }()

	sttSession, err := s.stt.NewSession(s.ctx, stt.SessionOptions{
		SampleRate:          s.cfg.SampleRate,
		Encoding:            s.cfg.Encoding,
		EndOfTurnConfidence: s.cfg.EndOfTurnConfidence,
		FormatTurns:         s.cfg.FormatTurns,
	})
	if err != nil {
		return fmt.Errorf("open recognizer session: %w", err)
	}
	defer sttSession.Close()

	var wg sync.WaitGroup
	defer func() {
		// Cancel before waiting so goroutines blocked on enqueue or the
		// result channels can exit.
		s.cancel()
		wg.Wait()
	}()

	gate := newTurnGate()
	buffer := voice.NewFrameBuffer(s.cfg.ChunkBytes)
	respondCh := make(chan respondResult, 4)
	speakDoneCh := make(chan speakResult, 4)
	sttEvents := sttSession.Events()

	var (
		streamSID  string
		dlg        Dialogue
		turnID     int
		turnBusy   bool
		pending    string
		hasPending bool
	)

	startTurn := func(utterance string) {
		turnID++
		turnBusy = true
		id := turnID
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := dlg.Respond(s.ctx, utterance)
			select {
			case respondCh <- respondResult{turnID: id, outcome: outcome}:
			case <-s.ctx.Done():
			}
		}()
	}

	for {
		select {
		case <-s.ctx.Done():
			return nil

		case err := <-writerErrCh:
			if err != nil {
				return fmt.Errorf("socket writer: %w", err)
			}
			return nil

		case fr := <-readCh:
			if fr.err != nil {
				if websocket.IsCloseError(fr.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				if s.State() == StateClosing {
					return nil
				}
				return fmt.Errorf("read media stream: %w", fr.err)
			}
			msg, err := protocol.DecodeInbound(fr.data)
			if err != nil {
				s.logger.Warn("dropping undecodable frame", "error", err)
				continue
			}
			switch msg.Event {
			case protocol.EventStart:
				streamSID = msg.Start.StreamSID
				caller := msg.Start.CustomParameters["caller"]
				dlg = s.newDialogue(caller)
				s.setState(StateStreaming)
				s.logger.Info("media stream started", "stream_sid", streamSID, "call_sid", msg.Start.CallSID)

			case protocol.EventMedia:
				if gate.Degraded() || s.State() != StateStreaming {
					continue
				}
				audio, err := msg.Media.Audio()
				if err != nil {
					s.logger.Warn("dropping media frame", "error", err)
					continue
				}
				for _, chunk := range buffer.Add(audio) {
					if err := sttSession.SendAudio(chunk); err != nil {
						s.logger.Error("recognizer rejected audio, entering degraded mode", "error", err)
						gate.MarkDegraded()
						break
					}
				}

			case protocol.EventMark:
				// The telephony side has finished playing everything up to
				// the mark. For the end-call mark that means the goodbye was
				// heard and the call can drop.
				if msg.Mark.Name == protocol.EndCallMark {
					s.logger.Info("end-call mark acknowledged, closing")
					return nil
				}

			case protocol.EventStop:
				s.logger.Info("media stream stopped by caller")
				return nil
			}

		case ev, ok := <-sttEvents:
			if !ok {
				sttEvents = nil
				continue
			}
			switch ev.Kind {
			case stt.EventOpened:
				s.logger.Info("recognizer session opened")
			case stt.EventTurn:
				if dlg == nil || s.State() != StateStreaming {
					continue
				}
				if !gate.Admit(ev.Turn) {
					continue
				}
				if turnBusy {
					// Latest finalized turn wins; intermediate ones are
					// stale by the time the engine frees up.
					pending = ev.Turn.Transcript
					hasPending = true
					continue
				}
				startTurn(ev.Turn.Transcript)
			case stt.EventError:
				s.logger.Error("recognizer error, entering degraded mode", "error", ev.Err)
				gate.MarkDegraded()
			case stt.EventClosed:
				if ev.Err != nil {
					s.logger.Warn("recognizer session closed", "error", ev.Err)
				}
			}

		case rr := <-respondCh:
			if rr.turnID != turnID {
				continue
			}
			wg.Add(1)
			go func(id int, sid string, out dialogue.Outcome) {
				defer wg.Done()
				err := s.speak(sid, out.Spoken, out.EndCall)
				select {
				case speakDoneCh <- speakResult{turnID: id, terminal: out.EndCall, err: err}:
				case <-s.ctx.Done():
				}
			}(rr.turnID, streamSID, rr.outcome)

		case sr := <-speakDoneCh:
			if sr.turnID != turnID {
				continue
			}
			turnBusy = false
			if sr.err != nil {
				s.logger.Error("reply playback failed", "error", sr.err)
			}
			if sr.terminal {
				// Hold the socket open until the end-call mark comes back
				// or the caller drops.
				s.setState(StateClosing)
				hasPending = false
				continue
			}
			if hasPending {
				utterance := pending
				hasPending = false
				startTurn(utterance)
			}
		}
	}
}

func (s *CallSession) readLoop(readCh chan<- inboundFrame) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case readCh <- inboundFrame{err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		select {
		case readCh <- inboundFrame{data: data}:
		case <-s.ctx.Done():
			return
		}
	}
}

// enqueue hands a frame to the writer. Returns false once the session is
// shutting down; output for a dead call is discarded.
func (s *CallSession) enqueue(frame outboundFrame) bool {
	select {
	case s.frames <- frame:
		return true
	case <-s.ctx.Done():
		return false
	}
}
