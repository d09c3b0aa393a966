package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cadranhq/cadran-platform/pkg/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var emailTracer = otel.Tracer("cadran.internal.notify.email")

// EmailSender defines the interface for sending emails.
// Implementations can be swapped (Resend, SendGrid, SES) without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (*SendReceipt, error)
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	From    string // "Name <address>"; empty means the sender's default
	To      []string
	Subject string
	HTML    string
	Text    string // Optional plain text body
}

// SendReceipt is the provider's acknowledgement of an accepted email.
type SendReceipt struct {
	ID       string `json:"id"`
	Provider string `json:"-"`
}

// SendObserver records provider send outcomes.
type SendObserver interface {
	ObserveEmailSend(provider, status string, seconds float64)
}

// InstrumentedSender wraps an EmailSender with a tracing span and metrics.
type InstrumentedSender struct {
	next     EmailSender
	provider string
	observer SendObserver
}

// Instrument decorates sender. A nil observer only traces.
func Instrument(sender EmailSender, provider string, observer SendObserver) *InstrumentedSender {
	return &InstrumentedSender{next: sender, provider: provider, observer: observer}
}

// Send forwards to the wrapped sender.
func (s *InstrumentedSender) Send(ctx context.Context, msg EmailMessage) (*SendReceipt, error) {
	ctx, span := emailTracer.Start(ctx, "notify.email.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("email.provider", s.provider),
		attribute.Int("email.recipients", len(msg.To)),
	)

	start := time.Now()
	receipt, err := s.next.Send(ctx, msg)
	status := "sent"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, "email send failed")
	} else if receipt != nil {
		span.SetAttributes(attribute.String("email.message_id", receipt.ID))
	}
	if s.observer != nil {
		s.observer.ObserveEmailSend(s.provider, status, time.Since(start).Seconds())
	}
	return receipt, err
}

// StubEmailSender is a no-op sender for local development.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub email sender that logs but doesn't send.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send logs the email and returns a synthetic receipt.
func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) (*SendReceipt, error) {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject)
	return &SendReceipt{ID: "stub-" + uuid.NewString(), Provider: ProviderStub}, nil
}

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderResend   = "resend"
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderStub     = "stub"
)

// SenderOptions carries what NewSender needs for any provider.
type SenderOptions struct {
	Provider       string
	ResendAPIKey   string
	ResendBaseURL  string
	SendGridAPIKey string
	DefaultFrom    string
	SES            SESAPI
}

// NewSender builds the configured provider's sender.
func NewSender(opts SenderOptions, logger *logging.Logger) (EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderResend:
		return NewResendSender(ResendConfig{
			APIKey:  opts.ResendAPIKey,
			BaseURL: opts.ResendBaseURL,
		}, logger)
	case ProviderSendGrid:
		return NewSendGridSender(SendGridConfig{
			APIKey:      opts.SendGridAPIKey,
			DefaultFrom: opts.DefaultFrom,
		}, logger), nil
	case ProviderSES:
		if opts.SES == nil {
			return nil, fmt.Errorf("notify: ses provider selected without an SES client")
		}
		return NewSESSender(opts.SES, SESConfig{DefaultFrom: opts.DefaultFrom}, logger), nil
	case ProviderStub:
		return NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("notify: unknown email provider %q", opts.Provider)
	}
}
