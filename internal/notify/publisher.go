package notify

import (
	"context"
	"time"

	"github.com/harborview-health/patient-portal/internal/appointments"
	"github.com/harborview-health/patient-portal/pkg/logging"
)

const publishTimeout = 5 * time.Second

// Publisher enqueues notification jobs for the worker pool. Publishing is
// fire-and-forget: a failed enqueue is logged, never surfaced to the booking
// workflow, and never blocks a confirmation.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a publisher over the given queue.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// AppointmentConfirmed enqueues the confirmation notices for a new booking.
func (p *Publisher) AppointmentConfirmed(ctx context.Context, req appointments.SubmitRequest, confirmationID string) {
	p.publish(ctx, kindConfirmed, req, confirmationID)
}

// AppointmentCancelled enqueues the cancellation notices.
func (p *Publisher) AppointmentCancelled(ctx context.Context, req appointments.SubmitRequest, confirmationID string) {
	p.publish(ctx, kindCancelled, req, confirmationID)
}

func (p *Publisher) publish(ctx context.Context, kind notificationKind, req appointments.SubmitRequest, confirmationID string) {
	if !req.NotifyEmail && !req.NotifySMS {
		return
	}

	payload, body, err := encodePayload(queuePayload{
		Kind:           kind,
		ConfirmationID: confirmationID,
		Appointment:    req,
	})
	if err != nil {
		p.logger.Error("failed to encode notification", "error", err, "kind", string(kind))
		return
	}

	// Detach from the request context so an almost-expired request does not
	// drop the notification.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.queue.Send(sendCtx, body); err != nil {
		p.logger.Error("failed to enqueue notification",
			"error", err,
			"kind", string(kind),
			"confirmation_id", confirmationID,
		)
		return
	}
	p.logger.Info("notification enqueued",
		"id", payload.ID,
		"kind", string(kind),
		"confirmation_id", confirmationID,
	)
}
