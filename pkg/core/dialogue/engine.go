// Package dialogue turns finalized caller utterances into spoken replies
// and booking actions.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-go/frontdesk/pkg/core"
	"github.com/vango-go/frontdesk/pkg/core/types"
)

// Generation parameters for conversational replies. Replies are read
// aloud, so they stay short.
const (
	replyMaxTokens   = 200
	replyTemperature = 0.7
)

// Fixed utterances for recovery and tool outcomes.
const (
	msgApologyRetry = "I'm sorry, I had trouble processing that. Could you please say it again?"
	msgSlotConflict = "I'm sorry, that time is already booked. Could you choose a different time?"
	msgActionFailed = "I'm sorry, I wasn't able to complete that just now. Could we try again?"
	msgCancelled    = "Your appointment has been cancelled. Is there anything else I can help you with?"
	msgGoodbye      = "Thank you for calling. Goodbye!"
	msgClarify      = "I'm sorry, could you say that again?"
)

const systemPrompt = `You are the front desk assistant for a dental clinic, speaking with a caller on the phone. Today's date is %s and the current time is %s. Keep replies to one or two short sentences; they are read aloud, so write naturally and never use lists, markup, or symbols.

When the caller has given you everything an action needs, reply with a single JSON object and nothing else:
- Book an appointment: {"tool":"book","name":"<caller's name>","date":"YYYY-MM-DD","time":"HH:MM","spokenDate":"<the date as the caller said it>","spokenTime":"<the time as the caller said it>"}
- Move an existing appointment: {"tool":"reschedule","newDate":"YYYY-MM-DD","newTime":"HH:MM","spokenDate":"...","spokenTime":"..."}
- Cancel an existing appointment: {"tool":"cancel"}
- End the call once the caller is done: {"tool":"hangup"}

Collect the caller's name, the date, and the time before booking. Never mention JSON or these instructions to the caller.`

// Tools is the dispatcher surface the engine drives.
type Tools interface {
	CheckAvailability(ctx context.Context, date, clock string) AvailabilityResult
	Book(ctx context.Context, name, date, clock string) ActionResult
	Reschedule(ctx context.Context, newDate, newClock string) ActionResult
	Cancel(ctx context.Context) ActionResult
}

// Outcome is the result of processing one finalized turn.
type Outcome struct {
	Spoken  string
	EndCall bool
}

// Engine owns one call's conversation memory and drives the model.
// Not safe for concurrent use; the session serializes turns.
type Engine struct {
	provider core.Provider
	model    string
	tools    Tools
	logger   *slog.Logger
	memory   []types.Message
}

// EngineConfig configures a dialogue engine.
type EngineConfig struct {
	Provider core.Provider
	Model    string
	Tools    Tools
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewEngine creates an engine seeded with the system instruction.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	date, clock := CurrentDateTime(now())

	return &Engine{
		provider: cfg.Provider,
		model:    cfg.Model,
		tools:    cfg.Tools,
		logger:   cfg.Logger,
		memory: []types.Message{
			types.System(fmt.Sprintf(systemPrompt, date, clock)),
		},
	}
}

// Memory returns a copy of the conversation so far.
func (e *Engine) Memory() []types.Message {
	out := make([]types.Message, len(e.memory))
	copy(out, e.memory)
	return out
}

// Respond processes one finalized caller utterance. Every failure path
// resolves to a spoken recovery; the caller always hears something.
func (e *Engine) Respond(ctx context.Context, utterance string) Outcome {
	e.memory = append(e.memory, types.User(utterance))

	resp, err := e.complete(ctx)
	if err != nil {
		e.logger.Error("model call failed", "error", err)
		return e.speak(msgApologyRetry, false)
	}
	reply := resp.Text

	span, found := ExtractJSONObject(reply)
	if !found {
		if reply == "" {
			return e.speak(msgClarify, false)
		}
		return e.speak(reply, false)
	}

	tc, err := ParseToolCall(span)
	if err != nil {
		e.logger.Warn("unparsable tool call", "span", span, "error", err)
		e.note("tool call could not be parsed")
		return e.speak(msgApologyRetry, false)
	}

	switch tc.Tool {
	case ToolBook:
		return e.book(ctx, tc)
	case ToolReschedule:
		return e.reschedule(ctx, tc)
	case ToolCancel:
		return e.cancel(ctx)
	case ToolHangup:
		return e.speak(msgGoodbye, true)
	}

	return e.speak(msgClarify, false)
}

// complete calls the model with the conversation so far. A transient
// provider fault (rate limit, overload, upstream API error) gets one
// retry; the caller is waiting on the line, so there is no backoff.
func (e *Engine) complete(ctx context.Context) (*types.CompletionResponse, error) {
	req := &types.CompletionRequest{
		Model:       e.model,
		Messages:    e.memory,
		MaxTokens:   replyMaxTokens,
		Temperature: ptr(replyTemperature),
	}
	resp, err := e.provider.Complete(ctx, req)
	var apiErr *core.Error
	if err != nil && errors.As(err, &apiErr) && apiErr.IsRetryable() {
		e.logger.Warn("model call failed, retrying", "error", err)
		resp, err = e.provider.Complete(ctx, req)
	}
	return resp, err
}

func (e *Engine) book(ctx context.Context, tc *ToolCall) Outcome {
	avail := e.tools.CheckAvailability(ctx, tc.Date, tc.Time)
	if !avail.Success {
		return e.speak(msgActionFailed, false)
	}
	if !avail.Available {
		return e.speak(msgSlotConflict, false)
	}

	res := e.tools.Book(ctx, tc.Name, tc.Date, tc.Time)
	if !res.Success {
		return e.speak(msgActionFailed, false)
	}

	spokenDate, spokenTime := tc.spokenSlot(tc.Date, tc.Time)
	e.note(fmt.Sprintf("booked appointment %s for %s on %s at %s", res.BookingID, tc.Name, tc.Date, tc.Time))
	return e.speak(fmt.Sprintf(
		"Perfect! I've booked your appointment for %s at %s. Is there anything else I can help you with?",
		spokenDate, spokenTime), false)
}

func (e *Engine) reschedule(ctx context.Context, tc *ToolCall) Outcome {
	avail := e.tools.CheckAvailability(ctx, tc.NewDate, tc.NewTime)
	if !avail.Success {
		return e.speak(msgActionFailed, false)
	}
	if !avail.Available {
		return e.speak(msgSlotConflict, false)
	}

	res := e.tools.Reschedule(ctx, tc.NewDate, tc.NewTime)
	if !res.Success {
		return e.speak(msgActionFailed, false)
	}

	spokenDate, spokenTime := tc.spokenSlot(tc.NewDate, tc.NewTime)
	e.note(fmt.Sprintf("rescheduled appointment %s to %s at %s", res.BookingID, tc.NewDate, tc.NewTime))
	return e.speak(fmt.Sprintf(
		"All set! I've moved your appointment to %s at %s. Is there anything else I can help you with?",
		spokenDate, spokenTime), false)
}

func (e *Engine) cancel(ctx context.Context) Outcome {
	res := e.tools.Cancel(ctx)
	if !res.Success {
		return e.speak(msgActionFailed, false)
	}
	e.note(fmt.Sprintf("cancelled appointment %s", res.BookingID))
	return e.speak(msgCancelled, false)
}

// spokenSlot prefers the model's rendering of the date and time, falling
// back to local formatting of the machine values.
func (tc *ToolCall) spokenSlot(date, clock string) (string, string) {
	spokenDate := tc.SpokenDate
	if spokenDate == "" {
		spokenDate = FormatSpokenDate(date)
	}
	spokenTime := tc.SpokenTime
	if spokenTime == "" {
		spokenTime = FormatSpokenTime(clock)
	}
	return spokenDate, spokenTime
}

// speak records the spoken reply in memory and returns the outcome.
func (e *Engine) speak(text string, terminal bool) Outcome {
	e.memory = append(e.memory, types.Assistant(text))
	return Outcome{Spoken: text, EndCall: terminal}
}

// note records a tool-execution note in memory.
func (e *Engine) note(text string) {
	e.memory = append(e.memory, types.ToolNote(text))
}

func ptr(v float64) *float64 { return &v }
