// Package server wires the gateway routes.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vango-go/frontdesk/pkg/booking"
	"github.com/vango-go/frontdesk/pkg/core"
	"github.com/vango-go/frontdesk/pkg/core/voice/stt"
	"github.com/vango-go/frontdesk/pkg/core/voice/tts"
	"github.com/vango-go/frontdesk/pkg/gateway/config"
	"github.com/vango-go/frontdesk/pkg/gateway/handlers"
	"github.com/vango-go/frontdesk/pkg/gateway/live/sessions"
	"github.com/vango-go/frontdesk/pkg/gateway/mw"
)

// Dependencies carries everything the routes need.
type Dependencies struct {
	Config   config.Config
	Logger   *slog.Logger
	Provider core.Provider

	// ModelName is the provider-local model name parsed from Config.Model.
	ModelName string

	Booking  booking.Service
	STT      stt.Provider
	TTS      tts.Provider
	Dialer   handlers.Dialer
	Sessions *sessions.Tracker
	Now      func() time.Time
}

type Server struct {
	deps Dependencies
	mux  *http.ServeMux
}

func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Server{
		deps: deps,
		mux:  http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.deps.Config})

	s.mux.Handle("/voice", handlers.VoiceHandler{Config: s.deps.Config})

	s.mux.Handle("/calls", handlers.CallsHandler{
		Config: s.deps.Config,
		Dialer: s.deps.Dialer,
		Logger: s.deps.Logger,
	})

	var calls *semaphore.Weighted
	if s.deps.Config.MaxConcurrentCalls > 0 {
		calls = semaphore.NewWeighted(int64(s.deps.Config.MaxConcurrentCalls))
	}

	s.mux.Handle("/stream", handlers.StreamHandler{
		Config:    s.deps.Config,
		Logger:    s.deps.Logger,
		Provider:  s.deps.Provider,
		ModelName: s.deps.ModelName,
		Booking:   s.deps.Booking,
		STT:       s.deps.STT,
		TTS:       s.deps.TTS,
		Sessions:  s.deps.Sessions,
		Now:       s.deps.Now,
		Calls:     calls,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.deps.Logger, h)
	h = mw.AccessLog(s.deps.Logger, h)
	h = mw.RequestID(h)
	return h
}
