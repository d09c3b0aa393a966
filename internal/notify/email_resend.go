package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cadranhq/cadran-platform/pkg/logging"
	"github.com/resend/resend-go/v2"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	apiKey string
	logger *logging.Logger
}

// ResendConfig holds configuration for Resend.
type ResendConfig struct {
	APIKey     string
	BaseURL    string // overrides https://api.resend.com/
	HTTPClient *http.Client
}

// NewResendSender creates a Resend sender. A missing API key is not an error
// here; every Send then fails as a provider rejection.
func NewResendSender(cfg ResendConfig, logger *logging.Logger) (*ResendSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	var client *resend.Client
	if cfg.HTTPClient != nil {
		client = resend.NewCustomClient(cfg.HTTPClient, apiKey)
	} else {
		client = resend.NewClient(apiKey)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("notify: invalid resend base url: %w", err)
		}
		client.BaseURL = parsed
	}

	return &ResendSender{
		client: client,
		apiKey: apiKey,
		logger: logger,
	}, nil
}

// Send sends an email via Resend.
func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) (*SendReceipt, error) {
	if s.apiKey == "" {
		s.logger.Error("resend api key not configured", "to", msg.To)
		return nil, &ProviderError{
			Provider:   ProviderResend,
			StatusCode: http.StatusUnauthorized,
			Name:       "missing_api_key",
			Message:    "RESEND_API_KEY is not configured",
		}
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("notify: no recipients specified")
	}

	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.logger.Error("resend send failed", "error", err, "to", msg.To)
		return nil, &ProviderError{
			Provider: ProviderResend,
			Name:     "application_error",
			Message:  strings.TrimPrefix(err.Error(), "[ERROR]: "),
		}
	}

	s.logger.Info("email sent via resend", "to", msg.To, "subject", msg.Subject, "email_id", sent.Id)
	return &SendReceipt{ID: sent.Id, Provider: ProviderResend}, nil
}

var _ EmailSender = (*ResendSender)(nil)
