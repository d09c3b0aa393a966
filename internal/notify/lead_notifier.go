package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cadranhq/cadran-platform/internal/leads"
	"github.com/cadranhq/cadran-platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var notifierTracer = otel.Tracer("cadran.internal.notify.lead")

// Delivery is the result of a successful lead notification.
type Delivery struct {
	LeadID  string
	Receipt *SendReceipt
}

// LeadNotifier turns lead insert events into operator emails. It holds no
// per-request state; one send is attempted per call and never retried.
type LeadNotifier struct {
	sender EmailSender
	cfg    LeadEmailConfig
	logger *logging.Logger
}

// NewLeadNotifier creates a notifier bound to a sender and a fixed envelope.
func NewLeadNotifier(sender EmailSender, cfg LeadEmailConfig, logger *logging.Logger) *LeadNotifier {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}
}

// Process decodes a raw webhook body and notifies. Errors are always *Error.
func (n *LeadNotifier) Process(ctx context.Context, body []byte) (*Delivery, error) {
	payload, err := leads.DecodeWebhookPayload(bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Err: err}
	}
	return n.Notify(ctx, payload)
}

// Notify validates the payload, builds the email and sends it once.
func (n *LeadNotifier) Notify(ctx context.Context, payload leads.WebhookPayload) (*Delivery, error) {
	ctx, span := notifierTracer.Start(ctx, "notify.lead")
	defer span.End()
	span.SetAttributes(
		attribute.String("lead.id", payload.Record.ID),
		attribute.String("webhook.type", payload.Type),
		attribute.String("webhook.table", payload.Table),
	)

	delivery, err := n.notify(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
	}
	return delivery, err
}

func (n *LeadNotifier) notify(ctx context.Context, payload leads.WebhookPayload) (*Delivery, error) {
	evt := payload.Record
	logger := n.logger.With("lead_id", evt.ID)

	if err := payload.Validate(); err != nil {
		logger.Warn("lead notification rejected", "error", err)
		return nil, &Error{Kind: KindValidation, Err: err}
	}

	msg, err := BuildLeadEmail(n.cfg, evt)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Err: err}
	}

	receipt, err := n.sender.Send(ctx, msg)
	if err != nil {
		var providerErr *ProviderError
		if errors.As(err, &providerErr) {
			logger.Error("email provider rejected lead notification", "error", err)
			return nil, &Error{Kind: KindProvider, Err: err}
		}
		logger.Error("lead notification failed", "error", err)
		return nil, &Error{Kind: KindUnexpected, Err: err}
	}
	if receipt == nil {
		return nil, &Error{Kind: KindUnexpected, Err: fmt.Errorf("notify: sender returned no receipt")}
	}

	logger.Info("lead notification sent", "provider", receipt.Provider, "email_id", receipt.ID)
	return &Delivery{LeadID: evt.ID, Receipt: receipt}, nil
}

// LeadCreated notifies for a lead captured in-process, as the database
// webhook would for an INSERT.
func (n *LeadNotifier) LeadCreated(ctx context.Context, lead *leads.Lead) error {
	_, err := n.Notify(ctx, leads.InsertPayload(lead))
	return err
}

var _ leads.CreatedHook = (*LeadNotifier)(nil)
