// Package appointments persists confirmed bookings. The booking workflow
// talks to it through the Submitter port: a single blocking call with no
// partial effects visible to the caller.
package appointments

import (
	"context"
	"time"
)

// SubmitRequest carries the finalized draft into the persistence backend.
type SubmitRequest struct {
	SessionID       string `json:"session_id"`
	PatientID       string `json:"patient_id"`
	PatientName     string `json:"patient_name"`
	PatientEmail    string `json:"patient_email"`
	PatientPhone    string `json:"patient_phone"`
	InsuranceRef    string `json:"insurance_ref"`
	ProviderID      string `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	Date            string `json:"date"` // YYYY-MM-DD
	Hour            int    `json:"hour"`
	DisplayTime     string `json:"display_time"`
	AppointmentType string `json:"appointment_type"`
	Reason          string `json:"reason"`
	NotifyEmail     bool   `json:"notify_email"`
	NotifySMS       bool   `json:"notify_sms"`
}

// Confirmation is the successful outcome of a submission.
type Confirmation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmissionError is a backend rejection. Its reason is opaque to the
// workflow and surfaced verbatim to the patient.
type SubmissionError struct {
	Reason string
}

func (e *SubmissionError) Error() string {
	return "appointments: submission rejected: " + e.Reason
}

// Submitter persists a finalized draft. Either the draft becomes a confirmed
// appointment or it does not; no retries are automatic.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*Confirmation, error)
	Cancel(ctx context.Context, confirmationID string) error
}
