package appointments

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Audit event kinds recorded for the portal's records screens.
const (
	AuditSubmitted = "submitted"
	AuditModified  = "modified"
	AuditCancelled = "cancelled"
)

// AuditEvent is one row in the appointment history.
type AuditEvent struct {
	ID             uuid.UUID
	ConfirmationID string
	PatientID      string
	Kind           string
	Detail         map[string]any
	CreatedAt      time.Time
}

// AuditStore appends appointment lifecycle events to PostgreSQL. A nil store
// is safe to call; auditing is optional in local development.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates an audit store, or nil when no database is configured.
func NewAuditStore(db *sql.DB) *AuditStore {
	if db == nil {
		return nil
	}
	return &AuditStore{db: db}
}

// Append records an event.
func (s *AuditStore) Append(ctx context.Context, confirmationID, patientID, kind string, detail map[string]any) error {
	if s == nil || s.db == nil {
		return nil
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("appointments: encode audit detail: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO appointment_events (id, confirmation_id, patient_id, kind, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), confirmationID, patientID, kind, payload)
	if err != nil {
		return fmt.Errorf("appointments: append audit event: %w", err)
	}
	return nil
}

// ListByPatient returns a patient's appointment history, newest first.
func (s *AuditStore) ListByPatient(ctx context.Context, patientID string, limit int) ([]AuditEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, confirmation_id, patient_id, kind, detail, created_at
		FROM appointment_events
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var evt AuditEvent
		var payload []byte
		if err := rows.Scan(&evt.ID, &evt.ConfirmationID, &evt.PatientID, &evt.Kind, &payload, &evt.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan audit event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &evt.Detail); err != nil {
				return nil, fmt.Errorf("appointments: decode audit detail: %w", err)
			}
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}
