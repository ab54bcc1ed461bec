package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/semaphore"

	"github.com/vango-go/frontdesk/pkg/booking"
	"github.com/vango-go/frontdesk/pkg/core"
	"github.com/vango-go/frontdesk/pkg/core/dialogue"
	"github.com/vango-go/frontdesk/pkg/core/voice/stt"
	"github.com/vango-go/frontdesk/pkg/core/voice/tts"
	"github.com/vango-go/frontdesk/pkg/gateway/config"
	"github.com/vango-go/frontdesk/pkg/gateway/live/session"
	"github.com/vango-go/frontdesk/pkg/gateway/live/sessions"
)

// StreamHandler upgrades /stream to a websocket and runs the call session.
type StreamHandler struct {
	Config    config.Config
	Logger    *slog.Logger
	Provider  core.Provider
	ModelName string
	Booking   booking.Service
	STT       stt.Provider
	TTS       tts.Provider
	Sessions  *sessions.Tracker
	Now       func() time.Time

	// Calls caps concurrent live sessions; nil means unlimited.
	Calls *semaphore.Weighted
}

func (h StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.Calls != nil {
		if !h.Calls.TryAcquire(1) {
			http.Error(w, "too many concurrent calls", http.StatusServiceUnavailable)
			return
		}
		defer h.Calls.Release(1)
	}

	upgrader := websocket.Upgrader{
		// The media stream comes from the telephony provider, not a
		// browser; there is no origin to check.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s, err := session.New(r.Context(), session.Dependencies{
		Conn:   conn,
		Logger: h.Logger,
		STT:    h.STT,
		TTS:    h.TTS,
		NewDialogue: func(caller string) session.Dialogue {
			return dialogue.NewEngine(dialogue.EngineConfig{
				Provider: h.Provider,
				Model:    h.ModelName,
				Tools:    dialogue.NewDispatcher(h.Booking, caller, h.Logger),
				Logger:   h.Logger,
				Now:      h.Now,
			})
		},
		Config: session.Config{
			ChunkBytes:          h.Config.ChunkBytes,
			SampleRate:          h.Config.SampleRate,
			EndOfTurnConfidence: h.Config.EndOfTurnConfidence,
			FormatTurns:         true,
			Voice:               h.Config.VoiceID,
			AudioFormat:         h.Config.AudioFormat,
			WriteTimeout:        h.Config.WSWriteTimeout,
			PingInterval:        h.Config.WSPingInterval,
		},
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("failed to initialize call session", "error", err)
		}
		return
	}

	unregister := func() {}
	if h.Sessions != nil {
		unregister = h.Sessions.Register(s.ID(), sessions.Handle{Cancel: s.Cancel})
	}
	defer unregister()

	if err := s.Run(); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("call session ended with error", "session_id", s.ID(), "error", err)
		}
	}
}
