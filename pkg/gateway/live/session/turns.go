package session

import "github.com/vango-go/frontdesk/pkg/core/voice/stt"

// turnGate filters recognizer turn events down to the ones worth a
// dialogue round trip. The recognizer may redeliver a finalized turn;
// acting on the same order number twice would double-book or double-reply.
type turnGate struct {
	lastOrder int
	degraded  bool
}

func newTurnGate() *turnGate {
	// Order numbers start at zero, so the gate starts below them.
	return &turnGate{lastOrder: -1}
}

// Admit reports whether the turn should be handed to the dialogue engine,
// recording its order number if so.
func (g *turnGate) Admit(t *stt.Turn) bool {
	if t == nil || t.Transcript == "" || !t.EndOfTurn {
		return false
	}
	if t.Order == g.lastOrder {
		return false
	}
	g.lastOrder = t.Order
	return true
}

// MarkDegraded records a recognizer fault. A degraded session accepts no
// further audio but keeps the call alive until the coordinator closes it.
func (g *turnGate) MarkDegraded() {
	g.degraded = true
}

// Degraded reports whether the recognizer has faulted.
func (g *turnGate) Degraded() bool {
	return g.degraded
}
