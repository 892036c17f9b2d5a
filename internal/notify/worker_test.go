package notify

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview-health/patient-portal/internal/appointments"
	"github.com/harborview-health/patient-portal/pkg/logging"
)

type captureEmailSender struct {
	mu       sync.Mutex
	sent     []EmailMessage
	failNext bool
}

func (c *captureEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		c.failNext = false
		return errors.New("smtp unavailable")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureEmailSender) messages() []EmailMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EmailMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

type captureSMSSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSMSSender) SendSMS(ctx context.Context, to, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, to+": "+body)
	return nil
}

func (c *captureSMSSender) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

func testRequest() appointments.SubmitRequest {
	return appointments.SubmitRequest{
		SessionID:    "sess-1",
		PatientID:    "pat-1",
		PatientName:  "Jordan Ramirez",
		PatientEmail: "jordan.ramirez@example.com",
		PatientPhone: "+1-503-555-0188",
		ProviderID:   "dr-lee",
		ProviderName: "Dr. Sarah Lee",
		Date:         "2026-09-07",
		Hour:         10,
		DisplayTime:  "10:00 AM",
		NotifyEmail:  true,
		NotifySMS:    true,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPublisherToWorkerDelivery(t *testing.T) {
	logger := logging.NewWithWriter("error", io.Discard)
	queue := NewMemoryQueue(16)
	email := &captureEmailSender{}
	sms := &captureSMSSender{}

	worker := NewWorker(queue, email, sms, logger, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	defer worker.Wait()
	defer cancel()

	pub := NewPublisher(queue, logger)
	pub.AppointmentConfirmed(context.Background(), testRequest(), "conf-1")

	waitFor(t, func() bool { return len(email.messages()) == 1 && len(sms.messages()) == 1 })

	msg := email.messages()[0]
	assert.Equal(t, "jordan.ramirez@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Appointment confirmed")
	assert.Contains(t, msg.Body, "Dr. Sarah Lee")
	assert.Contains(t, msg.Body, "conf-1")

	assert.Contains(t, sms.messages()[0], "+1-503-555-0188")
	assert.Contains(t, sms.messages()[0], "appointment confirmed")
}

func TestCancellationNotice(t *testing.T) {
	logger := logging.NewWithWriter("error", io.Discard)
	queue := NewMemoryQueue(16)
	email := &captureEmailSender{}

	worker := NewWorker(queue, email, nil, logger, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	defer worker.Wait()
	defer cancel()

	pub := NewPublisher(queue, logger)
	pub.AppointmentCancelled(context.Background(), testRequest(), "conf-9")

	waitFor(t, func() bool { return len(email.messages()) == 1 })
	msg := email.messages()[0]
	assert.Contains(t, msg.Subject, "Appointment cancelled")
	assert.Contains(t, msg.Body, "has been cancelled")
	assert.Contains(t, msg.Body, "conf-9")
}

func TestPublisherSkipsWhenNoChannelsOptedIn(t *testing.T) {
	logger := logging.NewWithWriter("error", io.Discard)
	queue := NewMemoryQueue(1)
	pub := NewPublisher(queue, logger)

	req := testRequest()
	req.NotifyEmail = false
	req.NotifySMS = false
	pub.AppointmentConfirmed(context.Background(), req, "conf-1")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	msgs, err := queue.Receive(ctx, 1, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, msgs)
}

func TestWorkerRespectsChannelPrefs(t *testing.T) {
	logger := logging.NewWithWriter("error", io.Discard)
	queue := NewMemoryQueue(16)
	email := &captureEmailSender{}
	sms := &captureSMSSender{}

	worker := NewWorker(queue, email, sms, logger, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	defer worker.Wait()
	defer cancel()

	req := testRequest()
	req.NotifySMS = false
	NewPublisher(queue, logger).AppointmentConfirmed(context.Background(), req, "conf-2")

	waitFor(t, func() bool { return len(email.messages()) == 1 })
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sms.messages(), "sms not opted in")
}

func TestWorkerDropsUndecodableMessage(t *testing.T) {
	logger := logging.NewWithWriter("error", io.Discard)
	queue := NewMemoryQueue(16)
	email := &captureEmailSender{}

	worker := NewWorker(queue, email, nil, logger, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	defer worker.Wait()
	defer cancel()

	require.NoError(t, queue.Send(context.Background(), "{not json"))
	NewPublisher(queue, logger).AppointmentConfirmed(context.Background(), testRequest(), "conf-3")

	// The bad message is discarded and the valid one still flows through.
	waitFor(t, func() bool { return len(email.messages()) == 1 })
	assert.Contains(t, email.messages()[0].Body, "conf-3")
}

func TestMessageComposition(t *testing.T) {
	payload := queuePayload{Kind: kindConfirmed, ConfirmationID: "conf-7", Appointment: testRequest()}

	msg := confirmationEmail(payload)
	assert.Equal(t, "Appointment confirmed for 2026-09-07 at 10:00 AM", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.Body, "Hi Jordan Ramirez,"))

	body := confirmationSMS(payload)
	assert.Contains(t, body, "Dr. Sarah Lee")
	assert.Contains(t, body, "Ref conf-7")

	payload.Kind = kindCancelled
	assert.Contains(t, cancellationSMS(payload), "was cancelled")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "0123456789...", truncate("0123456789abcdef", 10))
}
