package dialogue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vango-go/frontdesk/pkg/booking"
)

// AvailabilityResult reports whether a slot can be booked.
type AvailabilityResult struct {
	Success   bool
	Available bool
	Error     string
}

// ActionResult reports the outcome of a booking mutation.
type ActionResult struct {
	Success   bool
	BookingID string
	Error     string
}

// Dispatcher is the error-normalizing boundary between the dialogue engine
// and the booking service. Failures come back as values so the engine can
// always keep the call alive.
type Dispatcher struct {
	svc    booking.Service
	phone  string
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher scoped to one caller.
func NewDispatcher(svc booking.Service, phone string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{svc: svc, phone: phone, logger: logger}
}

// CheckAvailability reports whether a slot is free.
func (d *Dispatcher) CheckAvailability(ctx context.Context, date, clock string) AvailabilityResult {
	available, err := d.svc.CheckAvailability(ctx, date, clock)
	if err != nil {
		d.logger.Error("availability check failed", "date", date, "time", clock, "error", err)
		return AvailabilityResult{Error: err.Error()}
	}
	return AvailabilityResult{Success: true, Available: available}
}

// Book reserves a slot for the caller.
func (d *Dispatcher) Book(ctx context.Context, name, date, clock string) ActionResult {
	appt, err := d.svc.Book(ctx, d.phone, name, date, clock)
	if err != nil {
		d.logger.Error("booking failed", "name", name, "date", date, "time", clock, "error", err)
		return ActionResult{Error: errorText(err)}
	}
	d.logger.Info("appointment booked", "id", appt.ID, "name", name, "start", appt.StartAt)
	return ActionResult{Success: true, BookingID: appt.ID.String()}
}

// Reschedule moves the caller's appointment to a new slot.
func (d *Dispatcher) Reschedule(ctx context.Context, newDate, newClock string) ActionResult {
	appt, err := d.svc.Reschedule(ctx, d.phone, newDate, newClock)
	if err != nil {
		d.logger.Error("reschedule failed", "date", newDate, "time", newClock, "error", err)
		return ActionResult{Error: errorText(err)}
	}
	d.logger.Info("appointment rescheduled", "id", appt.ID, "start", appt.StartAt)
	return ActionResult{Success: true, BookingID: appt.ID.String()}
}

// Cancel cancels the caller's appointment.
func (d *Dispatcher) Cancel(ctx context.Context) ActionResult {
	appt, err := d.svc.Cancel(ctx, d.phone)
	if err != nil {
		d.logger.Error("cancel failed", "phone", d.phone, "error", err)
		return ActionResult{Error: errorText(err)}
	}
	d.logger.Info("appointment cancelled", "id", appt.ID)
	return ActionResult{Success: true, BookingID: appt.ID.String()}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, booking.ErrSlotUnavailable):
		return "slot unavailable"
	case errors.Is(err, booking.ErrNoAppointment):
		return "no scheduled appointment"
	default:
		return err.Error()
	}
}
