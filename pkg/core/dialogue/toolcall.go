package dialogue

import (
	"encoding/json"
	"fmt"
)

// Tool names the model may emit.
const (
	ToolBook       = "book"
	ToolReschedule = "reschedule"
	ToolCancel     = "cancel"
	ToolHangup     = "hangup"
)

// ToolCall is a structured command embedded in a model reply. At most one
// is acted on per reply.
type ToolCall struct {
	Tool       string `json:"tool"`
	Name       string `json:"name,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	NewDate    string `json:"newDate,omitempty"`
	NewTime    string `json:"newTime,omitempty"`
	SpokenDate string `json:"spokenDate,omitempty"`
	SpokenTime string `json:"spokenTime,omitempty"`
}

// ExtractJSONObject returns the first balanced top-level {...} span in s.
// The scan is string-aware so braces inside quoted values do not end the
// span early, and an unterminated object yields no span at all.
func ExtractJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", false
}

// ParseToolCall decodes a JSON span into a ToolCall and validates the
// fields the named tool requires.
func ParseToolCall(span string) (*ToolCall, error) {
	var tc ToolCall
	if err := json.Unmarshal([]byte(span), &tc); err != nil {
		return nil, fmt.Errorf("decode tool call: %w", err)
	}

	switch tc.Tool {
	case ToolBook:
		if tc.Name == "" || tc.Date == "" || tc.Time == "" {
			return nil, fmt.Errorf("book requires name, date, and time")
		}
	case ToolReschedule:
		if tc.NewDate == "" || tc.NewTime == "" {
			return nil, fmt.Errorf("reschedule requires newDate and newTime")
		}
	case ToolCancel, ToolHangup:
	default:
		return nil, fmt.Errorf("unknown tool %q", tc.Tool)
	}
	return &tc, nil
}
