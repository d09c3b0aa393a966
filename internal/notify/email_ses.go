package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/cadranhq/cadran-platform/pkg/logging"
)

// SESAPI is the slice of the SES v2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends emails via AWS SES.
type SESSender struct {
	client      SESAPI
	defaultFrom string
	logger      *logging.Logger
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	DefaultFrom string
}

// NewSESSender creates a new AWS SES email sender.
func NewSESSender(client SESAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SESSender{
		client:      client,
		defaultFrom: cfg.DefaultFrom,
		logger:      logger,
	}
}

// Send sends an email via AWS SES.
func (s *SESSender) Send(ctx context.Context, msg EmailMessage) (*SendReceipt, error) {
	if s.client == nil {
		return nil, fmt.Errorf("notify: SES client not configured")
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("notify: no recipients specified")
	}

	from := msg.From
	if from == "" {
		from = s.defaultFrom
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: msg.To,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.HTML),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
	if msg.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{
			Data:    aws.String(msg.Text),
			Charset: aws.String("UTF-8"),
		}
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("SES send failed", "error", err, "to", msg.To)
		providerErr := &ProviderError{Provider: ProviderSES, Name: "application_error", Message: err.Error()}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			providerErr.Name = apiErr.ErrorCode()
			providerErr.Message = apiErr.ErrorMessage()
		}
		return nil, providerErr
	}

	messageID := aws.ToString(output.MessageId)
	s.logger.Info("email sent via SES", "to", msg.To, "subject", msg.Subject, "message_id", messageID)
	return &SendReceipt{ID: messageID, Provider: ProviderSES}, nil
}

var _ EmailSender = (*SESSender)(nil)
