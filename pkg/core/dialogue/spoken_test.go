package dialogue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSpokenDate(t *testing.T) {
	assert.Equal(t, "October 2, 2025", FormatSpokenDate("2025-10-02"))
	assert.Equal(t, "January 1, 2026", FormatSpokenDate("2026-01-01"))
	assert.Equal(t, "next tuesday", FormatSpokenDate("next tuesday"))
}

func TestFormatSpokenTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"15:00", "3 PM"},
		{"15:30", "3:30 PM"},
		{"00:00", "12 AM"},
		{"00:15", "12:15 AM"},
		{"12:00", "12 PM"},
		{"09:05", "9:05 AM"},
		{"noonish", "noonish"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSpokenTime(tt.in), tt.in)
	}
}

func TestCurrentDateTime(t *testing.T) {
	now := time.Date(2025, 10, 2, 15, 4, 59, 0, time.UTC)
	date, clock := CurrentDateTime(now)
	assert.Equal(t, "2025-10-02", date)
	assert.Equal(t, "15:04", clock)
}
