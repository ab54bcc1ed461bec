package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-go/frontdesk/pkg/core"
	"github.com/vango-go/frontdesk/pkg/core/types"
)

// scriptedProvider returns canned replies in order. errOnce fails only
// the first call; err fails every call.
type scriptedProvider struct {
	replies []string
	err     error
	errOnce error
	gotReqs []*types.CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req *types.CompletionRequest) (*types.CompletionResponse, error) {
	p.gotReqs = append(p.gotReqs, req)
	if p.errOnce != nil {
		err := p.errOnce
		p.errOnce = nil
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	reply := p.replies[0]
	if len(p.replies) > 1 {
		p.replies = p.replies[1:]
	}
	return &types.CompletionResponse{Text: reply}, nil
}

// spyTools records calls and returns configured results.
type spyTools struct {
	available    bool
	availErr     bool
	actionResult ActionResult

	checkedSlots []string
	bookCalls    int
	reschedCalls int
	cancelCalls  int
}

func (s *spyTools) CheckAvailability(ctx context.Context, date, clock string) AvailabilityResult {
	s.checkedSlots = append(s.checkedSlots, date+" "+clock)
	if s.availErr {
		return AvailabilityResult{Error: "backend down"}
	}
	return AvailabilityResult{Success: true, Available: s.available}
}

func (s *spyTools) Book(ctx context.Context, name, date, clock string) ActionResult {
	s.bookCalls++
	return s.actionResult
}

func (s *spyTools) Reschedule(ctx context.Context, newDate, newClock string) ActionResult {
	s.reschedCalls++
	return s.actionResult
}

func (s *spyTools) Cancel(ctx context.Context) ActionResult {
	s.cancelCalls++
	return s.actionResult
}

func newTestEngine(provider *scriptedProvider, tools *spyTools) *Engine {
	return NewEngine(EngineConfig{
		Provider: provider,
		Model:    "llama-3.3-70b",
		Tools:    tools,
		Now:      func() time.Time { return time.Date(2025, 10, 1, 9, 30, 0, 0, time.UTC) },
	})
}

func TestEngine_SeedsSystemPrompt(t *testing.T) {
	e := newTestEngine(&scriptedProvider{replies: []string{"hi"}}, &spyTools{})

	mem := e.Memory()
	require.Len(t, mem, 1)
	assert.Equal(t, types.RoleSystem, mem[0].Role)
	assert.Contains(t, mem[0].Content, "2025-10-01")
	assert.Contains(t, mem[0].Content, "09:30")
}

func TestEngine_PlainReplyIsSpoken(t *testing.T) {
	p := &scriptedProvider{replies: []string{"Our next opening is tomorrow morning."}}
	e := newTestEngine(p, &spyTools{})

	out := e.Respond(context.Background(), "When can I come in?")

	assert.False(t, out.EndCall)
	assert.Equal(t, "Our next opening is tomorrow morning.", out.Spoken)

	// system, user, assistant
	mem := e.Memory()
	require.Len(t, mem, 3)
	assert.Equal(t, types.RoleUser, mem[1].Role)
	assert.Equal(t, "When can I come in?", mem[1].Content)
	assert.Equal(t, types.RoleAssistant, mem[2].Role)
	assert.Equal(t, out.Spoken, mem[2].Content)

	// Generation parameters are bounded.
	require.Len(t, p.gotReqs, 1)
	assert.Equal(t, replyMaxTokens, p.gotReqs[0].MaxTokens)
	require.NotNil(t, p.gotReqs[0].Temperature)
	assert.Equal(t, replyTemperature, *p.gotReqs[0].Temperature)
}

func TestEngine_Hangup(t *testing.T) {
	e := newTestEngine(&scriptedProvider{replies: []string{`{"tool":"hangup"}`}}, &spyTools{})

	out := e.Respond(context.Background(), "That's all, thanks.")

	assert.True(t, out.EndCall)
	assert.Equal(t, msgGoodbye, out.Spoken)

	mem := e.Memory()
	assert.Equal(t, msgGoodbye, mem[len(mem)-1].Content)
	assert.Equal(t, types.RoleAssistant, mem[len(mem)-1].Role)
}

func TestEngine_BookSuccess(t *testing.T) {
	reply := `{"tool":"book","name":"John","date":"2025-10-02","time":"15:00","spokenDate":"October second","spokenTime":"three PM"}`
	tools := &spyTools{available: true, actionResult: ActionResult{Success: true, BookingID: "b-1"}}
	e := newTestEngine(&scriptedProvider{replies: []string{reply}}, tools)

	out := e.Respond(context.Background(), "I want an appointment on October second at three PM, my name is John")

	assert.False(t, out.EndCall)
	assert.True(t, strings.HasPrefix(out.Spoken, "Perfect! I've booked your appointment for October second at three PM."), out.Spoken)
	assert.Equal(t, 1, tools.bookCalls)
	assert.Equal(t, []string{"2025-10-02 15:00"}, tools.checkedSlots)

	// The raw JSON span is never spoken and a tool note lands in memory.
	assert.NotContains(t, out.Spoken, "{")
	mem := e.Memory()
	assert.Equal(t, types.RoleTool, mem[len(mem)-2].Role)
	assert.Contains(t, mem[len(mem)-2].Content, "b-1")
}

func TestEngine_BookUnavailableNeverBooks(t *testing.T) {
	reply := `{"tool":"book","name":"John","date":"2025-10-02","time":"15:00"}`
	tools := &spyTools{available: false}
	e := newTestEngine(&scriptedProvider{replies: []string{reply}}, tools)

	out := e.Respond(context.Background(), "Book me for three PM.")

	assert.False(t, out.EndCall)
	assert.Equal(t, msgSlotConflict, out.Spoken)
	assert.Zero(t, tools.bookCalls, "create must not be invoked for an unavailable slot")
}

func TestEngine_BookSpokenFallback(t *testing.T) {
	reply := `{"tool":"book","name":"John","date":"2025-10-02","time":"15:00"}`
	tools := &spyTools{available: true, actionResult: ActionResult{Success: true, BookingID: "b-2"}}
	e := newTestEngine(&scriptedProvider{replies: []string{reply}}, tools)

	out := e.Respond(context.Background(), "Book it.")

	assert.Contains(t, out.Spoken, "October 2, 2025")
	assert.Contains(t, out.Spoken, "3 PM")
}

func TestEngine_BookDispatchFailure(t *testing.T) {
	reply := `{"tool":"book","name":"John","date":"2025-10-02","time":"15:00"}`
	tools := &spyTools{available: true, actionResult: ActionResult{Error: "db down"}}
	e := newTestEngine(&scriptedProvider{replies: []string{reply}}, tools)

	out := e.Respond(context.Background(), "Book it.")

	assert.False(t, out.EndCall)
	assert.Equal(t, msgActionFailed, out.Spoken)
	assert.NotContains(t, out.Spoken, "db down", "raw errors never reach the caller")
}

func TestEngine_AvailabilityBackendFailure(t *testing.T) {
	reply := `{"tool":"book","name":"John","date":"2025-10-02","time":"15:00"}`
	tools := &spyTools{availErr: true}
	e := newTestEngine(&scriptedProvider{replies: []string{reply}}, tools)

	out := e.Respond(context.Background(), "Book it.")

	assert.False(t, out.EndCall)
	assert.Equal(t, msgActionFailed, out.Spoken)
	assert.Zero(t, tools.bookCalls)
}

func TestEngine_Reschedule(t *testing.T) {
	reply := `{"tool":"reschedule","newDate":"2025-10-03","newTime":"10:00","spokenDate":"October third","spokenTime":"ten AM"}`
	tools := &spyTools{available: true, actionResult: ActionResult{Success: true, BookingID: "b-3"}}
	e := newTestEngine(&scriptedProvider{replies: []string{reply}}, tools)

	out := e.Respond(context.Background(), "Move my appointment to October third at ten.")

	assert.False(t, out.EndCall)
	assert.Contains(t, out.Spoken, "October third")
	assert.Contains(t, out.Spoken, "ten AM")
	assert.Equal(t, 1, tools.reschedCalls)
	assert.Equal(t, []string{"2025-10-03 10:00"}, tools.checkedSlots)
}

func TestEngine_Cancel(t *testing.T) {
	tools := &spyTools{actionResult: ActionResult{Success: true, BookingID: "b-4"}}
	e := newTestEngine(&scriptedProvider{replies: []string{`{"tool":"cancel"}`}}, tools)

	out := e.Respond(context.Background(), "Cancel my appointment.")

	assert.False(t, out.EndCall)
	assert.Equal(t, msgCancelled, out.Spoken)
	assert.Equal(t, 1, tools.cancelCalls)
}

func TestEngine_UnparsableToolCall(t *testing.T) {
	tools := &spyTools{}
	e := newTestEngine(&scriptedProvider{replies: []string{`{"tool":"book","name":}`}}, tools)

	out := e.Respond(context.Background(), "Book me in.")

	assert.False(t, out.EndCall)
	assert.Equal(t, msgApologyRetry, out.Spoken)
	assert.Zero(t, tools.bookCalls)

	mem := e.Memory()
	assert.Equal(t, types.RoleTool, mem[len(mem)-2].Role)
}

func TestEngine_ModelFailure(t *testing.T) {
	e := newTestEngine(&scriptedProvider{err: errors.New("rate limited")}, &spyTools{})

	out := e.Respond(context.Background(), "Hello?")

	assert.False(t, out.EndCall)
	assert.Equal(t, msgApologyRetry, out.Spoken)
}

func TestEngine_RetriesTransientModelFailure(t *testing.T) {
	p := &scriptedProvider{
		errOnce: core.NewOverloadedError("model busy"),
		replies: []string{"Sure, what day works for you?"},
	}
	e := newTestEngine(p, &spyTools{})

	out := e.Respond(context.Background(), "I'd like an appointment.")

	assert.Equal(t, "Sure, what day works for you?", out.Spoken)
	require.Len(t, p.gotReqs, 2, "a transient fault gets exactly one retry")
}

func TestEngine_DoesNotRetryInvalidRequest(t *testing.T) {
	p := &scriptedProvider{err: core.NewInvalidRequestError("context too long")}
	e := newTestEngine(p, &spyTools{})

	out := e.Respond(context.Background(), "Hello?")

	assert.Equal(t, msgApologyRetry, out.Spoken)
	require.Len(t, p.gotReqs, 1)
}

func TestEngine_EmptyReply(t *testing.T) {
	e := newTestEngine(&scriptedProvider{replies: []string{""}}, &spyTools{})

	out := e.Respond(context.Background(), "Hello?")

	assert.False(t, out.EndCall)
	assert.Equal(t, msgClarify, out.Spoken)
}

func TestEngine_MemoryAccumulatesAcrossTurns(t *testing.T) {
	p := &scriptedProvider{replies: []string{"Of course, what day works?", `{"tool":"hangup"}`}}
	e := newTestEngine(p, &spyTools{})

	e.Respond(context.Background(), "I'd like an appointment.")
	e.Respond(context.Background(), "Actually never mind, bye.")

	// The second model call must carry the full history.
	require.Len(t, p.gotReqs, 2)
	second := p.gotReqs[1].Messages
	require.Len(t, second, 4) // system, user, assistant, user
	assert.Equal(t, "I'd like an appointment.", second[1].Content)
	assert.Equal(t, "Of course, what day works?", second[2].Content)
	assert.Equal(t, "Actually never mind, bye.", second[3].Content)
}
