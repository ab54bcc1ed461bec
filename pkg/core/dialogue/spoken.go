package dialogue

import (
	"fmt"
	"time"
)

// FormatSpokenDate turns a machine date ("2006-01-02") into text suitable
// for synthesis, e.g. "October 2, 2025". Unparsable input is returned
// unchanged so the caller still hears something sensible.
func FormatSpokenDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %d, %d", t.Month(), t.Day(), t.Year())
}

// FormatSpokenTime turns a wall-clock time ("15:04") into spoken text,
// e.g. "3 PM" or "3:30 PM". Unparsable input is returned unchanged.
func FormatSpokenTime(clock string) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}

	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	period := "AM"
	if t.Hour() >= 12 {
		period = "PM"
	}
	if t.Minute() == 0 {
		return fmt.Sprintf("%d %s", hour, period)
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), period)
}

// CurrentDateTime renders now as the machine date and time formats the
// model is instructed to use.
func CurrentDateTime(now time.Time) (date, clock string) {
	return now.Format("2006-01-02"), now.Format("15:04")
}
