package session

import (
	"fmt"

	"github.com/vango-go/frontdesk/pkg/core/voice/tts"
	"github.com/vango-go/frontdesk/pkg/gateway/live/protocol"
)

// speak synthesizes one reply and streams it to the caller. Audio frames go
// out in synthesis order; when the reply ends the call, the end-call mark is
// enqueued after the last audio frame so the goodbye plays out in full.
func (s *CallSession) speak(streamSID, text string, terminal bool) error {
	if text != "" {
		if err := s.streamReply(streamSID, text); err != nil {
			if !terminal {
				return err
			}
			// The goodbye audio is lost but the call must still end.
			s.logger.Error("goodbye synthesis failed", "error", err)
		}
	}

	if terminal {
		frame, err := protocol.EncodeMark(streamSID, protocol.EndCallMark)
		if err != nil {
			return fmt.Errorf("encode end-call mark: %w", err)
		}
		s.enqueue(outboundFrame{kind: frameMark, payload: frame})
	}
	return nil
}

func (s *CallSession) streamReply(streamSID, text string) error {
	stream, err := s.tts.SynthesizeStream(s.ctx, text, tts.SynthesizeOptions{
		Voice:      s.cfg.Voice,
		Format:     s.cfg.AudioFormat,
		SampleRate: s.cfg.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("open synthesis stream: %w", err)
	}
	defer stream.Close()

	for chunk := range stream.Chunks() {
		frame, err := protocol.EncodeMedia(streamSID, chunk)
		if err != nil {
			return fmt.Errorf("encode media frame: %w", err)
		}
		if !s.enqueue(outboundFrame{kind: frameMedia, payload: frame}) {
			return nil
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("synthesis stream: %w", err)
	}
	return nil
}
