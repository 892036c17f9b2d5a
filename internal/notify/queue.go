package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/harborview-health/patient-portal/internal/appointments"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type notificationKind string

const (
	kindConfirmed notificationKind = "appointment_confirmed"
	kindCancelled notificationKind = "appointment_cancelled"
)

type queuePayload struct {
	ID             string                     `json:"id"`
	Kind           notificationKind           `json:"kind"`
	ConfirmationID string                     `json:"confirmation_id"`
	Appointment    appointments.SubmitRequest `json:"appointment"`
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("notify: failed to encode payload: %w", err)
	}

	return payload, string(body), nil
}
