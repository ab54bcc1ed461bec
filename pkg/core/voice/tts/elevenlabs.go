package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultElevenLabsWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"

	// DefaultModelID is the lowest-latency ElevenLabs model.
	DefaultModelID = "eleven_flash_v2_5"
	// DefaultOutputFormat matches telephony audio.
	DefaultOutputFormat = "ulaw_8000"
)

// ElevenLabsProvider implements the Provider interface using the ElevenLabs
// stream-input websocket API. Each reply gets its own connection; the
// stream-input endpoint closes the socket once synthesis finishes.
type ElevenLabsProvider struct {
	apiKey  string
	voiceID string
	baseURL string
	modelID string
}

// ElevenLabsOption configures the provider.
type ElevenLabsOption func(*ElevenLabsProvider)

// WithWSBase overrides the websocket endpoint template. The template may
// contain a {voice_id} placeholder.
func WithWSBase(base string) ElevenLabsOption {
	return func(p *ElevenLabsProvider) { p.baseURL = base }
}

// WithModelID overrides the synthesis model.
func WithModelID(modelID string) ElevenLabsOption {
	return func(p *ElevenLabsProvider) { p.modelID = modelID }
}

// NewElevenLabs creates a new ElevenLabs TTS provider with a default voice.
func NewElevenLabs(apiKey, voiceID string, opts ...ElevenLabsOption) *ElevenLabsProvider {
	p := &ElevenLabsProvider{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: defaultElevenLabsWSBase,
		modelID: DefaultModelID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

// SynthesizeStream synthesizes one reply over a dedicated websocket.
func (p *ElevenLabsProvider) SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisStream, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = p.voiceID
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("elevenlabs voice id is required")
	}

	wsURL, err := p.buildWSURL(voiceID, opts)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("xi-api-key", p.apiKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	stream := NewSynthesisStream()
	go p.readLoop(conn, stream)

	if err := p.sendReply(conn, text); err != nil {
		conn.Close()
		return nil, err
	}

	return stream, nil
}

// sendReply writes the handshake, the full reply text, and the end marker.
// The reply is small enough that staging it in one message keeps latency
// dominated by the model, not by us.
func (p *ElevenLabsProvider) sendReply(conn *websocket.Conn, text string) error {
	messages := []map[string]any{
		{"text": " "},
		{"text": ensureTrailingSpace(text)},
		{"text": ""},
	}
	for _, msg := range messages {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
	}
	return nil
}

type elevenLabsChunk struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (p *ElevenLabsProvider) readLoop(conn *websocket.Conn, stream *SynthesisStream) {
	defer conn.Close()
	defer stream.FinishSending()

	for {
		select {
		case <-stream.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				stream.SetError(fmt.Errorf("read: %w", err))
			}
			return
		}

		var msg elevenLabsChunk
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			stream.SetError(fmt.Errorf("elevenlabs: %s: %s", msg.Error, msg.Message))
			return
		}

		if msg.Audio != "" {
			audio, err := decodeBase64Any(msg.Audio)
			if err != nil {
				stream.SetError(fmt.Errorf("decode audio: %w", err))
				return
			}
			if len(audio) > 0 && !stream.Send(audio) {
				return
			}
		}
		if msg.IsFinal {
			return
		}
	}
}

func (p *ElevenLabsProvider) buildWSURL(voiceID string, opts SynthesizeOptions) (string, error) {
	base := strings.ReplaceAll(p.baseURL, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid elevenlabs ws base url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}

	format := opts.Format
	if format == "" {
		format = DefaultOutputFormat
	}

	q := u.Query()
	if q.Get("model_id") == "" {
		q.Set("model_id", p.modelID)
	}
	if q.Get("output_format") == "" {
		q.Set("output_format", format)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func ensureTrailingSpace(text string) string {
	if strings.TrimSpace(text) != "" && !strings.HasSuffix(text, " ") {
		return text + " "
	}
	return text
}

// decodeBase64Any accepts standard or URL-safe base64, padded or not.
func decodeBase64Any(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("invalid base64")
}
