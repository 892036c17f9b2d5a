package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var appointmentsTracer = otel.Tracer("portal.internal.appointments")

const uniqueViolation = "23505"

// ErrNotFound is returned when a confirmation id resolves to no appointment.
var ErrNotFound = errors.New("appointments: appointment not found")

// PgxPool is the pgxpool subset the repository needs; pgxmock satisfies it.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores appointments in the relational database. The
// unique index on (provider_id, appointment_date, appointment_hour) is the
// authoritative at-most-one guarantee; a conflicting insert comes back as a
// SubmissionError, never as a second booking.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Submit inserts a confirmed appointment row.
func (r *PostgresRepository) Submit(ctx context.Context, req SubmitRequest) (*Confirmation, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("portal.provider_id", req.ProviderID),
		attribute.String("portal.date", req.Date),
		attribute.Int("portal.hour", req.Hour),
	)

	id := uuid.New()
	query := `
		INSERT INTO appointments (
			id, patient_id, patient_name, patient_email, patient_phone,
			insurance_ref, provider_id, provider_name,
			appointment_date, appointment_hour, appointment_type, reason,
			notify_email, notify_sms, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'confirmed')
		RETURNING created_at
	`
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query,
		id,
		req.PatientID,
		req.PatientName,
		req.PatientEmail,
		req.PatientPhone,
		req.InsuranceRef,
		req.ProviderID,
		req.ProviderName,
		req.Date,
		req.Hour,
		req.AppointmentType,
		req.Reason,
		req.NotifyEmail,
		req.NotifySMS,
	).Scan(&createdAt)
	if err != nil {
		span.RecordError(err)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, &SubmissionError{Reason: "this time slot has already been booked"}
		}
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	return &Confirmation{ID: id.String(), CreatedAt: createdAt}, nil
}

// Cancel marks an appointment cancelled. Cancelled rows keep their slot key
// out of the unique index so the hour becomes bookable again.
func (r *PostgresRepository) Cancel(ctx context.Context, confirmationID string) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("portal.confirmation_id", confirmationID))

	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled', cancelled_at = now()
		WHERE id = $1 AND status = 'confirmed'
	`, confirmationID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: cancel failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
