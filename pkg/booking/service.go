// Package booking manages appointment scheduling for the front desk.
// Appointments occupy one-hour slots keyed by the caller's phone number.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SlotDuration is the length of every appointment.
const SlotDuration = time.Hour

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
)

var (
	// ErrSlotUnavailable means the requested slot overlaps a scheduled
	// appointment.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrNoAppointment means the caller has no scheduled appointment to
	// act on.
	ErrNoAppointment = errors.New("no scheduled appointment")
)

// Appointment is one booked slot.
type Appointment struct {
	ID        uuid.UUID
	Phone     string
	Name      string
	StartAt   time.Time
	EndAt     time.Time
	Status    string
	CreatedAt time.Time
}

// Service is the appointment operations interface.
type Service interface {
	// CheckAvailability reports whether a slot is free of scheduled
	// appointments.
	CheckAvailability(ctx context.Context, date, clock string) (bool, error)

	// Book reserves a slot for the caller. Returns ErrSlotUnavailable if
	// the slot overlaps an existing scheduled appointment.
	Book(ctx context.Context, phone, name, date, clock string) (*Appointment, error)

	// Reschedule moves the caller's most recent scheduled appointment to a
	// new slot. Returns ErrNoAppointment if there is none, or
	// ErrSlotUnavailable if the new slot is taken.
	Reschedule(ctx context.Context, phone, date, clock string) (*Appointment, error)

	// Cancel cancels the caller's most recent scheduled appointment.
	// Returns ErrNoAppointment if there is none.
	Cancel(ctx context.Context, phone string) (*Appointment, error)
}

// ParseSlot converts a date ("2006-01-02") and wall-clock time ("15:04")
// into a one-hour slot in the given location.
func ParseSlot(date, clock string, loc *time.Location) (start, end time.Time, err error) {
	if loc == nil {
		loc = time.Local
	}
	start, err = time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid slot %q %q: %w", date, clock, err)
	}
	return start, start.Add(SlotDuration), nil
}

// overlaps reports whether two half-open intervals intersect.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
