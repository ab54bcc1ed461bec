package server

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-go/frontdesk/pkg/gateway/config"
)

func TestRoutes(t *testing.T) {
	s := New(Dependencies{
		Config: config.Config{PublicURL: "https://clinic.example.com"},
	})
	h := s.Handler()

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
		if rec.Code != 200 {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatal("missing request id header")
		}
	})

	t.Run("voice", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/voice", nil))
		if rec.Code != 200 {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "wss://clinic.example.com/stream") {
			t.Fatalf("body = %s", rec.Body.String())
		}
	})

	t.Run("calls disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/calls?number=%2B15550001", nil))
		if rec.Code != 503 {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
		if rec.Code != 404 {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
