package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeInbound_Start(t *testing.T) {
	raw := `{"event":"start","start":{"streamSid":"MZ1","callSid":"CA1","customParameters":{"caller":"+15550001"}}}`
	msg, err := DecodeInbound([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	if msg.Event != EventStart {
		t.Fatalf("event = %q", msg.Event)
	}
	if msg.Start.StreamSID != "MZ1" || msg.Start.CallSID != "CA1" {
		t.Fatalf("start = %+v", msg.Start)
	}
	if msg.Start.CustomParameters["caller"] != "+15550001" {
		t.Fatalf("custom parameters = %v", msg.Start.CustomParameters)
	}
}

func TestDecodeInbound_Media(t *testing.T) {
	audio := []byte{0x7f, 0x80, 0xff}
	raw := `{"event":"media","media":{"payload":"` + base64.StdEncoding.EncodeToString(audio) + `"}}`

	msg, err := DecodeInbound([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	got, err := msg.Media.Audio()
	if err != nil {
		t.Fatalf("Audio() error = %v", err)
	}
	if string(got) != string(audio) {
		t.Fatalf("audio = %v, want %v", got, audio)
	}
}

func TestDecodeInbound_UnknownEventPasses(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"event":"connected","protocol":"Call"}`))
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	if msg.Event != EventConnected {
		t.Fatalf("event = %q", msg.Event)
	}
}

func TestDecodeInbound_Invalid(t *testing.T) {
	cases := []string{
		`not json`,
		`{}`,
		`{"event":"start"}`,
		`{"event":"start","start":{"streamSid":""}}`,
		`{"event":"media"}`,
		`{"event":"media","media":{"payload":""}}`,
		`{"event":"mark","mark":{"name":""}}`,
	}
	for _, raw := range cases {
		_, err := DecodeInbound([]byte(raw))
		if err == nil {
			t.Fatalf("DecodeInbound(%q): expected error", raw)
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("DecodeInbound(%q): error type = %T", raw, err)
		}
	}
}

func TestDecodeInbound_BadMediaBase64(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"event":"media","media":{"payload":"!!!"}}`))
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	if _, err := msg.Media.Audio(); err == nil {
		t.Fatal("expected base64 error")
	}
}

func TestEncodeMedia(t *testing.T) {
	frame, err := EncodeMedia("MZ1", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("EncodeMedia() error = %v", err)
	}

	var decoded struct {
		StreamSID string `json:"streamSid"`
		Event     string `json:"event"`
		Media     struct {
			Payload string `json:"payload"`
		} `json:"media"`
	}
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.StreamSID != "MZ1" || decoded.Event != EventMedia {
		t.Fatalf("frame = %+v", decoded)
	}
	audio, err := base64.StdEncoding.DecodeString(decoded.Media.Payload)
	if err != nil || string(audio) != "\x01\x02\x03" {
		t.Fatalf("payload = %q (%v)", decoded.Media.Payload, err)
	}
}

func TestEncodeMark(t *testing.T) {
	frame, err := EncodeMark("MZ1", EndCallMark)
	if err != nil {
		t.Fatalf("EncodeMark() error = %v", err)
	}

	var decoded struct {
		StreamSID string `json:"streamSid"`
		Event     string `json:"event"`
		Mark      struct {
			Name string `json:"name"`
		} `json:"mark"`
	}
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Event != EventMark || decoded.Mark.Name != "end call" {
		t.Fatalf("frame = %+v", decoded)
	}
}
