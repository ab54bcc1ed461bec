package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresService is the production Service backed by Postgres.
type PostgresService struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPostgres creates a Postgres booking service from a connection string.
func NewPostgres(ctx context.Context, dsn string, loc *time.Location) (*PostgresService, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &PostgresService{pool: pool, loc: loc}, nil
}

// Close releases the connection pool.
func (s *PostgresService) Close() {
	s.pool.Close()
}

// CheckAvailability reports whether a slot is free.
func (s *PostgresService) CheckAvailability(ctx context.Context, date, clock string) (bool, error) {
	start, end, err := ParseSlot(date, clock, s.loc)
	if err != nil {
		return false, err
	}
	var taken bool
	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE status = $1 AND start_at < $3 AND $2 < end_at
		)`,
		StatusScheduled, start, end).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return !taken, nil
}

// Book reserves a slot for the caller.
func (s *PostgresService) Book(ctx context.Context, phone, name, date, clock string) (*Appointment, error) {
	start, end, err := ParseSlot(date, clock, s.loc)
	if err != nil {
		return nil, err
	}

	var appt *Appointment
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		taken, err := slotTaken(ctx, tx, start, end, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotUnavailable
		}

		appt = &Appointment{
			ID:        uuid.New(),
			Phone:     phone,
			Name:      name,
			StartAt:   start,
			EndAt:     end,
			Status:    StatusScheduled,
			CreatedAt: time.Now(),
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO appointments (id, phone, name, start_at, end_at, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			appt.ID, appt.Phone, appt.Name, appt.StartAt, appt.EndAt, appt.Status, appt.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Reschedule moves the caller's most recent scheduled appointment.
func (s *PostgresService) Reschedule(ctx context.Context, phone, date, clock string) (*Appointment, error) {
	start, end, err := ParseSlot(date, clock, s.loc)
	if err != nil {
		return nil, err
	}

	var appt *Appointment
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := latestScheduled(ctx, tx, phone)
		if err != nil {
			return err
		}

		taken, err := slotTaken(ctx, tx, start, end, current.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotUnavailable
		}

		_, err = tx.Exec(ctx,
			`UPDATE appointments SET start_at = $2, end_at = $3 WHERE id = $1`,
			current.ID, start, end)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		current.StartAt = start
		current.EndAt = end
		appt = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Cancel cancels the caller's most recent scheduled appointment.
func (s *PostgresService) Cancel(ctx context.Context, phone string) (*Appointment, error) {
	var appt *Appointment
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := latestScheduled(ctx, tx, phone)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE appointments SET status = $2 WHERE id = $1`,
			current.ID, StatusCancelled)
		if err != nil {
			return fmt.Errorf("cancel appointment: %w", err)
		}
		current.Status = StatusCancelled
		appt = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *PostgresService) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func slotTaken(ctx context.Context, tx pgx.Tx, start, end time.Time, skip uuid.UUID) (bool, error) {
	var taken bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE status = $1 AND id != $2 AND start_at < $4 AND $3 < end_at
		)`,
		StatusScheduled, skip, start, end).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return taken, nil
}

func latestScheduled(ctx context.Context, tx pgx.Tx, phone string) (*Appointment, error) {
	var appt Appointment
	err := tx.QueryRow(ctx, `
		SELECT id, phone, name, start_at, end_at, status, created_at
		FROM appointments
		WHERE phone = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`,
		phone, StatusScheduled).
		Scan(&appt.ID, &appt.Phone, &appt.Name, &appt.StartAt, &appt.EndAt, &appt.Status, &appt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAppointment
	}
	if err != nil {
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &appt, nil
}
