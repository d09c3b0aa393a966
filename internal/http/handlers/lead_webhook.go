package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cadranhq/cadran-platform/internal/notify"
	"github.com/cadranhq/cadran-platform/pkg/logging"
)

const maxWebhookBodyBytes = 1 << 20

// LeadProcessor is the transport-free notification core.
type LeadProcessor interface {
	Process(ctx context.Context, body []byte) (*notify.Delivery, error)
}

// WebhookObserver records webhook outcomes.
type WebhookObserver interface {
	ObserveWebhook(outcome string)
}

// Webhook outcomes as reported to the observer.
const (
	OutcomePreflight    = "preflight"
	OutcomeSent         = "sent"
	OutcomeUnauthorized = "unauthorized"
	OutcomeValidation   = "validation"
	OutcomeProvider     = "provider"
	OutcomeUnexpected   = "unexpected"
)

// CORSHeaders are attached to every lead webhook response.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
}

// LeadWebhookHandler serves the database "lead inserted" webhook.
type LeadWebhookHandler struct {
	processor LeadProcessor
	secret    string
	observer  WebhookObserver
	logger    *logging.Logger
}

// NewLeadWebhookHandler wires the handler. An empty secret disables bearer auth.
func NewLeadWebhookHandler(processor LeadProcessor, secret string, logger *logging.Logger) *LeadWebhookHandler {
	if processor == nil {
		panic("handlers: lead processor required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadWebhookHandler{
		processor: processor,
		secret:    strings.TrimSpace(secret),
		logger:    logger,
	}
}

// WithObserver attaches a metrics observer.
func (h *LeadWebhookHandler) WithObserver(observer WebhookObserver) *LeadWebhookHandler {
	h.observer = observer
	return h
}

func (h *LeadWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for k, v := range CORSHeaders {
		w.Header().Set(k, v)
	}

	switch r.Method {
	case http.MethodOptions:
		h.observe(OutcomePreflight)
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "OPTIONS, POST")
		writeWebhookJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if !AuthorizedBearer(h.secret, r.Header.Get("Authorization")) {
		h.logger.Warn("lead webhook rejected: bad bearer token", "remote_addr", r.RemoteAddr)
		h.observe(OutcomeUnauthorized)
		writeWebhookJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("lead webhook: read body", "error", err)
		h.observe(OutcomeUnexpected)
		writeWebhookJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	status, resp := h.Respond(r.Context(), body)
	writeWebhookJSON(w, status, resp)
}

// Respond runs the core on a raw body and returns the status and JSON body
// to send. It is shared with the Lambda adapter.
func (h *LeadWebhookHandler) Respond(ctx context.Context, body []byte) (int, any) {
	delivery, err := h.processor.Process(ctx, body)
	if err != nil {
		kind := notify.KindOf(err)
		h.observe(kind.String())
		return notify.StatusFor(kind), notify.ErrorBody(err)
	}
	h.observe(OutcomeSent)
	return http.StatusOK, delivery.Receipt
}

// Authorize checks an Authorization header value against the configured secret.
func (h *LeadWebhookHandler) Authorize(header string) bool {
	return AuthorizedBearer(h.secret, header)
}

// Observe forwards an outcome to the observer, if any.
func (h *LeadWebhookHandler) Observe(outcome string) {
	h.observe(outcome)
}

func (h *LeadWebhookHandler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveWebhook(outcome)
	}
}

// AuthorizedBearer reports whether header carries "Bearer <secret>". An empty
// secret authorizes everything.
func AuthorizedBearer(secret, header string) bool {
	if secret == "" {
		return true
	}
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func writeWebhookJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
