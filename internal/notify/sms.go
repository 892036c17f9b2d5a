package notify

import (
	"context"
	"fmt"

	"github.com/harborview-health/patient-portal/pkg/logging"
)

// SMSSender sends SMS messages to patients.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SimpleSMSSender delegates to a provider-specific send function. The gateway
// integration stays out of this package; only the from-number and logging
// live here.
type SimpleSMSSender struct {
	from     string
	sendFunc func(ctx context.Context, to, from, body string) error
	logger   *logging.Logger
}

// NewSimpleSMSSender creates an SMS sender with a custom send function.
func NewSimpleSMSSender(from string, sendFunc func(ctx context.Context, to, from, body string) error, logger *logging.Logger) *SimpleSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SimpleSMSSender{
		from:     from,
		sendFunc: sendFunc,
		logger:   logger,
	}
}

// SendSMS sends an SMS message.
func (s *SimpleSMSSender) SendSMS(ctx context.Context, to, body string) error {
	if s.sendFunc == nil {
		return fmt.Errorf("notify: SMS send function not configured")
	}
	if err := s.sendFunc(ctx, to, s.from, body); err != nil {
		s.logger.Error("SMS send failed", "error", err, "to", to)
		return fmt.Errorf("notify: SMS send failed: %w", err)
	}
	s.logger.Info("SMS sent", "to", to, "length", len(body))
	return nil
}

// StubSMSSender is a no-op sender for testing.
type StubSMSSender struct {
	logger *logging.Logger
}

// NewStubSMSSender creates a stub SMS sender.
func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

// SendSMS logs but doesn't send.
func (s *StubSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("stub SMS sender: would send", "to", to, "body", truncate(body, 80))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var (
	_ SMSSender = (*SimpleSMSSender)(nil)
	_ SMSSender = (*StubSMSSender)(nil)
)
