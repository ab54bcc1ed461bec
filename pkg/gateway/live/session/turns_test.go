package session

import (
	"testing"

	"github.com/vango-go/frontdesk/pkg/core/voice/stt"
)

func TestTurnGate_Admit(t *testing.T) {
	g := newTurnGate()

	if g.Admit(&stt.Turn{Transcript: "hello", Order: 0}) {
		t.Fatal("admitted a turn that has not ended")
	}
	if g.Admit(&stt.Turn{Transcript: "", Order: 0, EndOfTurn: true}) {
		t.Fatal("admitted an empty transcript")
	}
	if !g.Admit(&stt.Turn{Transcript: "hello", Order: 0, EndOfTurn: true}) {
		t.Fatal("rejected the first finalized turn")
	}
	if g.Admit(&stt.Turn{Transcript: "hello", Order: 0, EndOfTurn: true}) {
		t.Fatal("admitted a redelivered turn")
	}
	if !g.Admit(&stt.Turn{Transcript: "next", Order: 1, EndOfTurn: true}) {
		t.Fatal("rejected the following turn")
	}
}

func TestTurnGate_Degraded(t *testing.T) {
	g := newTurnGate()
	if g.Degraded() {
		t.Fatal("gate starts degraded")
	}
	g.MarkDegraded()
	if !g.Degraded() {
		t.Fatal("degraded flag not set")
	}
}
