package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-go/frontdesk/pkg/gateway/config"
	"github.com/vango-go/frontdesk/pkg/telephony"
)

// Dialer places outbound calls. *telephony.Client satisfies it.
type Dialer interface {
	CreateCall(ctx context.Context, toNumber, webhookURL string) (*telephony.Call, error)
}

// CallsHandler places an outbound call that connects the callee to the
// agent.
type CallsHandler struct {
	Config config.Config
	Dialer Dialer
	Logger *slog.Logger
}

func (h CallsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Dialer == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "outbound calls are not configured")
		return
	}

	number := strings.TrimSpace(r.URL.Query().Get("number"))
	if number == "" {
		writeJSONError(w, http.StatusBadRequest, "number query parameter is required")
		return
	}

	call, err := h.Dialer.CreateCall(r.Context(), number, h.Config.PublicURL+"/voice")
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("outbound call failed", "number", number, "error", err)
		}
		writeJSONError(w, http.StatusBadGateway, "failed to place call")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"sid":    call.SID,
		"status": call.Status,
		"to":     call.To,
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
