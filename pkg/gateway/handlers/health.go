package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vango-go/frontdesk/pkg/core"
	"github.com/vango-go/frontdesk/pkg/gateway/config"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config config.Config
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK            bool     `json:"ok"`
		OutboundCalls bool     `json:"outbound_calls"`
		Issues        []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if _, _, err := core.ParseModelString(h.Config.Model); err != nil {
		issues = append(issues, "invalid model")
	}
	if h.Config.PublicURL == "" {
		issues = append(issues, "public url is not set")
	}
	if h.Config.AssemblyAIAPIKey == "" {
		issues = append(issues, "missing assemblyai api key")
	}
	if h.Config.ElevenLabsAPIKey == "" {
		issues = append(issues, "missing elevenlabs api key")
	}
	if h.Config.ChunkBytes <= 0 {
		issues = append(issues, "chunk bytes must be > 0")
	}
	if h.Config.SampleRate <= 0 {
		issues = append(issues, "sample rate must be > 0")
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:            ok,
		OutboundCalls: h.Config.OutboundCallsEnabled(),
		Issues:        issues,
	})
}
