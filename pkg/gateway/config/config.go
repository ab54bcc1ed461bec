// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// PublicURL is the externally reachable base URL of this gateway.
	// Twilio fetches TwiML from it and connects the media stream to its
	// wss equivalent.
	PublicURL string

	// Model is the dialogue model in provider/model form.
	Model string

	// Provider credentials.
	CerebrasAPIKey   string
	GeminiAPIKey     string
	AssemblyAIAPIKey string
	ElevenLabsAPIKey string

	// Voice synthesis.
	VoiceID     string
	TTSModelID  string
	AudioFormat string

	// Recognition tuning.
	SampleRate          int
	ChunkBytes          int
	EndOfTurnConfidence float64

	// Twilio REST credentials for outbound calls. Optional; the /calls
	// endpoint is disabled without them.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// DatabaseURL enables the Postgres booking store. Empty keeps
	// bookings in memory.
	DatabaseURL string

	// Timezone for interpreting appointment slots.
	Timezone string

	// MaxConcurrentCalls caps simultaneous live call sessions.
	MaxConcurrentCalls int

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	WSWriteTimeout      time.Duration
	WSPingInterval      time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("FRONTDESK_ADDR", ":8080"),
		PublicURL:           envOr("FRONTDESK_PUBLIC_URL", ""),
		Model:               envOr("FRONTDESK_MODEL", "cerebras/llama-3.3-70b"),
		CerebrasAPIKey:      envOr("CEREBRAS_API_KEY", ""),
		GeminiAPIKey:        envOr("GEMINI_API_KEY", ""),
		AssemblyAIAPIKey:    envOr("ASSEMBLYAI_API_KEY", ""),
		ElevenLabsAPIKey:    envOr("ELEVENLABS_API_KEY", ""),
		VoiceID:             envOr("FRONTDESK_VOICE_ID", "Xb7hH8MSUJpSbSDYk0k2"),
		TTSModelID:          envOr("FRONTDESK_TTS_MODEL_ID", "eleven_flash_v2_5"),
		AudioFormat:         envOr("FRONTDESK_AUDIO_FORMAT", "ulaw_8000"),
		SampleRate:          envIntOr("FRONTDESK_SAMPLE_RATE", 8000),
		ChunkBytes:          envIntOr("FRONTDESK_CHUNK_BYTES", 800),
		EndOfTurnConfidence: envFloat64Or("FRONTDESK_END_OF_TURN_CONFIDENCE", 0.5),
		TwilioAccountSID:    envOr("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     envOr("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:    envOr("TWILIO_FROM_NUMBER", ""),
		DatabaseURL:         envOr("FRONTDESK_DATABASE_URL", ""),
		Timezone:            envOr("FRONTDESK_TIMEZONE", "Local"),
		MaxConcurrentCalls:  envIntOr("FRONTDESK_MAX_CONCURRENT_CALLS", 32),
		ReadHeaderTimeout:   envDurationOr("FRONTDESK_READ_HEADER_TIMEOUT", 10*time.Second),
		WSWriteTimeout:      envDurationOr("FRONTDESK_WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval:      envDurationOr("FRONTDESK_WS_PING_INTERVAL", 20*time.Second),
		ShutdownGracePeriod: envDurationOr("FRONTDESK_SHUTDOWN_GRACE_PERIOD", 15*time.Second),
	}

	if _, _, err := splitModel(cfg.Model); err != nil {
		return Config{}, fmt.Errorf("FRONTDESK_MODEL: %w", err)
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("FRONTDESK_SAMPLE_RATE must be > 0")
	}
	if cfg.ChunkBytes <= 0 {
		return Config{}, fmt.Errorf("FRONTDESK_CHUNK_BYTES must be > 0")
	}
	if cfg.EndOfTurnConfidence < 0 || cfg.EndOfTurnConfidence > 1 {
		return Config{}, fmt.Errorf("FRONTDESK_END_OF_TURN_CONFIDENCE must be in [0,1]")
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		return Config{}, fmt.Errorf("FRONTDESK_VOICE_ID must not be empty")
	}
	if cfg.MaxConcurrentCalls <= 0 {
		return Config{}, fmt.Errorf("FRONTDESK_MAX_CONCURRENT_CALLS must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("FRONTDESK_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("FRONTDESK_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("FRONTDESK_WS_PING_INTERVAL must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("FRONTDESK_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	hasAny := cfg.TwilioAccountSID != "" || cfg.TwilioAuthToken != "" || cfg.TwilioFromNumber != ""
	hasAll := cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != ""
	if hasAny && !hasAll {
		return Config{}, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER must be set together")
	}

	return cfg, nil
}

// OutboundCallsEnabled reports whether the /calls endpoint can be served.
func (c Config) OutboundCallsEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// StreamURL is the wss media-stream URL derived from the public URL.
func (c Config) StreamURL() string {
	base := strings.TrimRight(c.PublicURL, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/stream"
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("FRONTDESK_TIMEZONE: %w", err)
	}
	return loc, nil
}

func splitModel(model string) (provider, name string, err error) {
	idx := strings.Index(model, "/")
	if idx <= 0 || idx == len(model)-1 {
		return "", "", fmt.Errorf("must be of the form provider/model, got %q", model)
	}
	return model[:idx], model[idx+1:], nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
