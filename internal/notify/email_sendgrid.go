package notify

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/cadranhq/cadran-platform/pkg/logging"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender sends emails via SendGrid API.
type SendGridSender struct {
	client      *sendgrid.Client
	defaultFrom string
	logger      *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey      string
	DefaultFrom string
}

// NewSendGridSender creates a new SendGrid email sender. Without an API key the
// sender has no client and every Send is a provider rejection.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	s := &SendGridSender{
		defaultFrom: cfg.DefaultFrom,
		logger:      logger,
	}
	if strings.TrimSpace(cfg.APIKey) != "" {
		s.client = sendgrid.NewSendClient(cfg.APIKey)
	}
	return s
}

// Send sends an email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) (*SendReceipt, error) {
	if s.client == nil {
		return nil, &ProviderError{
			Provider:   ProviderSendGrid,
			StatusCode: 401,
			Name:       "missing_api_key",
			Message:    "SENDGRID_API_KEY is not configured",
		}
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("notify: no recipients specified")
	}

	fromAddr := msg.From
	if fromAddr == "" {
		fromAddr = s.defaultFrom
	}
	from, err := parseAddress(fromAddr)
	if err != nil {
		return nil, fmt.Errorf("notify: invalid sender %q: %w", fromAddr, err)
	}

	message := sgmail.NewV3Mail()
	message.SetFrom(sgmail.NewEmail(from.Name, from.Address))
	message.Subject = msg.Subject

	personalization := sgmail.NewPersonalization()
	for _, to := range msg.To {
		addr, err := parseAddress(to)
		if err != nil {
			return nil, fmt.Errorf("notify: invalid recipient %q: %w", to, err)
		}
		personalization.AddTos(sgmail.NewEmail(addr.Name, addr.Address))
	}
	message.AddPersonalizations(personalization)

	if msg.Text != "" {
		message.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	message.AddContent(sgmail.NewContent("text/html", msg.HTML))

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return nil, &ProviderError{Provider: ProviderSendGrid, Name: "application_error", Message: err.Error()}
	}

	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return nil, &ProviderError{
			Provider:   ProviderSendGrid,
			StatusCode: response.StatusCode,
			Name:       "sendgrid_error",
			Message:    strings.TrimSpace(response.Body),
		}
	}

	var messageID string
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", msg.Subject, "status", response.StatusCode)
	return &SendReceipt{ID: messageID, Provider: ProviderSendGrid}, nil
}

func parseAddress(raw string) (*mail.Address, error) {
	return mail.ParseAddress(strings.TrimSpace(raw))
}

var _ EmailSender = (*SendGridSender)(nil)
