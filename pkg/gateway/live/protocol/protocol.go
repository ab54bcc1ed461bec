// Package protocol defines the JSON frames exchanged with the telephony
// media stream.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound event names.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
)

// EndCallMark is the mark name that closes the call once the telephony
// side acknowledges it.
const EndCallMark = "end call"

// DecodeError reports a frame the gateway cannot act on.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "bad frame: " + e.Reason }

func badFrame(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// StartPayload carries the stream identity supplied by the start event.
type StartPayload struct {
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid"`
	AccountSID       string            `json:"accountSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

// MediaPayload carries one inbound audio frame.
type MediaPayload struct {
	Payload   string `json:"payload"`
	Track     string `json:"track"`
	Chunk     string `json:"chunk"`
	Timestamp string `json:"timestamp"`
}

// Audio decodes the base64 payload.
func (m *MediaPayload) Audio() ([]byte, error) {
	audio, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return nil, badFrame("media payload is not base64: %v", err)
	}
	return audio, nil
}

// MarkPayload acknowledges an outbound mark frame.
type MarkPayload struct {
	Name string `json:"name"`
}

// StopPayload signals the end of the media stream.
type StopPayload struct {
	CallSID string `json:"callSid"`
}

// InboundMessage is one decoded frame from the telephony side.
type InboundMessage struct {
	Event string        `json:"event"`
	Start *StartPayload `json:"start,omitempty"`
	Media *MediaPayload `json:"media,omitempty"`
	Mark  *MarkPayload  `json:"mark,omitempty"`
	Stop  *StopPayload  `json:"stop,omitempty"`
}

// DecodeInbound parses and validates one inbound frame. Events this
// gateway does not handle decode successfully with just Event set; the
// session ignores them.
func DecodeInbound(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, badFrame("invalid JSON: %v", err)
	}
	if strings.TrimSpace(msg.Event) == "" {
		return nil, badFrame("missing event")
	}

	switch msg.Event {
	case EventStart:
		if msg.Start == nil || strings.TrimSpace(msg.Start.StreamSID) == "" {
			return nil, badFrame("start event requires streamSid")
		}
	case EventMedia:
		if msg.Media == nil || msg.Media.Payload == "" {
			return nil, badFrame("media event requires a payload")
		}
	case EventMark:
		if msg.Mark == nil || strings.TrimSpace(msg.Mark.Name) == "" {
			return nil, badFrame("mark event requires a name")
		}
	}
	return &msg, nil
}

type outboundMedia struct {
	StreamSID string `json:"streamSid"`
	Event     string `json:"event"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

type outboundMark struct {
	StreamSID string `json:"streamSid"`
	Event     string `json:"event"`
	Mark      struct {
		Name string `json:"name"`
	} `json:"mark"`
}

// EncodeMedia builds an outbound media frame for the given stream.
func EncodeMedia(streamSID string, audio []byte) ([]byte, error) {
	var frame outboundMedia
	frame.StreamSID = streamSID
	frame.Event = EventMedia
	frame.Media.Payload = base64.StdEncoding.EncodeToString(audio)
	return json.Marshal(frame)
}

// EncodeMark builds an outbound mark frame for the given stream.
func EncodeMark(streamSID, name string) ([]byte, error) {
	var frame outboundMark
	frame.StreamSID = streamSID
	frame.Event = EventMark
	frame.Mark.Name = name
	return json.Marshal(frame)
}
