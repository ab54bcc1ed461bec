package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/vango-go/frontdesk/pkg/gateway/config"
)

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ok\n" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReadyHandler_Ready(t *testing.T) {
	h := ReadyHandler{Config: config.Config{
		Model:            "cerebras/llama-3.3-70b",
		PublicURL:        "https://clinic.example.com",
		AssemblyAIAPIKey: "aai",
		ElevenLabsAPIKey: "xi",
		ChunkBytes:       800,
		SampleRate:       8000,
	}}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestReadyHandler_ReportsIssues(t *testing.T) {
	h := ReadyHandler{Config: config.Config{Model: "bad"}}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != 503 {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		OK     bool     `json:"ok"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.OK || len(resp.Issues) == 0 {
		t.Fatalf("response = %+v", resp)
	}
}
