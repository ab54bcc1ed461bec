package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryService is an in-memory Service. It backs local development and
// tests; production uses the Postgres store.
type MemoryService struct {
	mu    sync.Mutex
	loc   *time.Location
	now   func() time.Time
	appts []*Appointment
}

// NewMemoryService creates an empty in-memory booking service.
func NewMemoryService(loc *time.Location) *MemoryService {
	if loc == nil {
		loc = time.Local
	}
	return &MemoryService{loc: loc, now: time.Now}
}

// CheckAvailability reports whether a slot is free.
func (s *MemoryService) CheckAvailability(ctx context.Context, date, clock string) (bool, error) {
	start, end, err := ParseSlot(date, clock, s.loc)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.slotTakenLocked(start, end, uuid.Nil), nil
}

// Book reserves a slot for the caller.
func (s *MemoryService) Book(ctx context.Context, phone, name, date, clock string) (*Appointment, error) {
	start, end, err := ParseSlot(date, clock, s.loc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slotTakenLocked(start, end, uuid.Nil) {
		return nil, ErrSlotUnavailable
	}

	appt := &Appointment{
		ID:        uuid.New(),
		Phone:     phone,
		Name:      name,
		StartAt:   start,
		EndAt:     end,
		Status:    StatusScheduled,
		CreatedAt: s.now(),
	}
	s.appts = append(s.appts, appt)
	out := *appt
	return &out, nil
}

// Reschedule moves the caller's most recent scheduled appointment.
func (s *MemoryService) Reschedule(ctx context.Context, phone, date, clock string) (*Appointment, error) {
	start, end, err := ParseSlot(date, clock, s.loc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appt := s.latestScheduledLocked(phone)
	if appt == nil {
		return nil, ErrNoAppointment
	}
	if s.slotTakenLocked(start, end, appt.ID) {
		return nil, ErrSlotUnavailable
	}

	appt.StartAt = start
	appt.EndAt = end
	out := *appt
	return &out, nil
}

// Cancel cancels the caller's most recent scheduled appointment.
func (s *MemoryService) Cancel(ctx context.Context, phone string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt := s.latestScheduledLocked(phone)
	if appt == nil {
		return nil, ErrNoAppointment
	}
	appt.Status = StatusCancelled
	out := *appt
	return &out, nil
}

func (s *MemoryService) slotTakenLocked(start, end time.Time, skip uuid.UUID) bool {
	for _, a := range s.appts {
		if a.Status != StatusScheduled || a.ID == skip {
			continue
		}
		if overlaps(start, end, a.StartAt, a.EndAt) {
			return true
		}
	}
	return false
}

func (s *MemoryService) latestScheduledLocked(phone string) *Appointment {
	var latest *Appointment
	for _, a := range s.appts {
		if a.Phone != phone || a.Status != StatusScheduled {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	return latest
}
