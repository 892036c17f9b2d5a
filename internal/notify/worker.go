package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/harborview-health/patient-portal/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// Worker consumes notification jobs from the queue and delivers them over the
// channels the patient opted into.
type Worker struct {
	queue  queueClient
	email  EmailSender
	sms    SMSSender
	logger *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages each receive pulls.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// NewWorker creates a notification worker pool. Either sender may be nil when
// the corresponding channel is disabled.
func NewWorker(queue queueClient, email EmailSender, sms SMSSender, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{
		queue:  queue,
		email:  email,
		sms:    sms,
		logger: logger,
		cfg:    cfg,
	}
}

// Start launches the consumer goroutines. They exit when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all consumers have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("notification worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("notification worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive notification jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		// Undecodable messages never succeed on redelivery; drop them.
		w.logger.Error("failed to decode notification job", "error", err)
		w.deleteMessage(ctx, msg.ReceiptHandle)
		return
	}

	if w.deliver(ctx, payload) {
		w.deleteMessage(ctx, msg.ReceiptHandle)
	}
}

// deliver sends the payload over each opted-in channel and reports whether
// every attempted channel succeeded. A partial failure leaves the message on
// the queue for redelivery.
func (w *Worker) deliver(ctx context.Context, payload queuePayload) bool {
	ok := true

	if payload.Appointment.NotifyEmail && w.email != nil {
		var msg EmailMessage
		switch payload.Kind {
		case kindCancelled:
			msg = cancellationEmail(payload)
		default:
			msg = confirmationEmail(payload)
		}
		if err := w.email.Send(ctx, msg); err != nil {
			w.logger.Error("notification email failed",
				"error", err,
				"confirmation_id", payload.ConfirmationID,
			)
			ok = false
		}
	}

	if payload.Appointment.NotifySMS && w.sms != nil {
		var body string
		switch payload.Kind {
		case kindCancelled:
			body = cancellationSMS(payload)
		default:
			body = confirmationSMS(payload)
		}
		if err := w.sms.SendSMS(ctx, payload.Appointment.PatientPhone, body); err != nil {
			w.logger.Error("notification SMS failed",
				"error", err,
				"confirmation_id", payload.ConfirmationID,
			)
			ok = false
		}
	}

	return ok
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete notification job", "error", err)
	}
}
