package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cadranhq/cadran-platform/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSender struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
	err  error
}

func (s *capturingSender) Send(_ context.Context, msg notify.EmailMessage) (*notify.SendReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return nil, s.err
	}
	return &notify.SendReceipt{ID: "re_123", Provider: notify.ProviderResend}, nil
}

type outcomeRecorder struct {
	outcomes []string
}

func (o *outcomeRecorder) ObserveWebhook(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

const anaWebhook = `{
	"type": "INSERT",
	"table": "leads",
	"schema": "public",
	"record": {
		"id": "lead-ana",
		"name": "Dra. Ana",
		"email": "ana@x.com",
		"whatsapp": "11999998888",
		"metadata": {"revenue": "50k", "clinicName": "Clínica X", "painPoint": "glosas"}
	}
}`

func newWebhookHandler(sender notify.EmailSender, secret string) (*LeadWebhookHandler, *outcomeRecorder) {
	notifier := notify.NewLeadNotifier(sender, notify.LeadEmailConfig{
		From:                "Cadran <onboarding@resend.dev>",
		To:                  "ops@cadran.test",
		WhatsAppCountryCode: "55",
	}, nil)
	rec := &outcomeRecorder{}
	return NewLeadWebhookHandler(notifier, secret, nil).WithObserver(rec), rec
}

func serveWebhook(h http.Handler, method, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/webhooks/lead-notify", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestLeadWebhook_PreflightNeverSends(t *testing.T) {
	for _, body := range []string{"", anaWebhook, "not json"} {
		sender := &capturingSender{}
		h, rec := newWebhookHandler(sender, "s3cret")

		w := serveWebhook(h, http.MethodOptions, body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assertCORS(t, w)
		assert.Empty(t, sender.sent)
		assert.Equal(t, []string{OutcomePreflight}, rec.outcomes)
	}
}

func TestLeadWebhook_SendsOnceAndEchoesProviderResponse(t *testing.T) {
	sender := &capturingSender{}
	h, rec := newWebhookHandler(sender, "")

	w := serveWebhook(h, http.MethodPost, anaWebhook, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assertCORS(t, w)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"re_123"}`, w.Body.String())

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "Dra. Ana")
	assert.Contains(t, sender.sent[0].Subject, "50k")
	assert.Equal(t, []string{OutcomeSent}, rec.outcomes)
}

func TestLeadWebhook_MissingEmailFailsWithoutSending(t *testing.T) {
	sender := &capturingSender{}
	h, rec := newWebhookHandler(sender, "")

	w := serveWebhook(h, http.MethodPost, `{"type":"INSERT","table":"leads","record":{"id":"1","name":"Ana"}}`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assertCORS(t, w)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "email is required")
	assert.Empty(t, sender.sent)
	assert.Equal(t, []string{OutcomeValidation}, rec.outcomes)
}

func TestLeadWebhook_ProviderFailureIs400(t *testing.T) {
	sender := &capturingSender{err: &notify.ProviderError{
		Provider:   notify.ProviderResend,
		StatusCode: 422,
		Name:       "validation_error",
		Message:    "Invalid `to` field.",
	}}
	h, rec := newWebhookHandler(sender, "")

	w := serveWebhook(h, http.MethodPost, anaWebhook, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assertCORS(t, w)
	assert.JSONEq(t, `{"error":{"statusCode":422,"name":"validation_error","message":"Invalid `+"`to`"+` field."}}`, w.Body.String())
	assert.Len(t, sender.sent, 1)
	assert.Equal(t, []string{OutcomeProvider}, rec.outcomes)
}

func TestLeadWebhook_TransportFailureIs500(t *testing.T) {
	sender := &capturingSender{err: errors.New("dial tcp: connection refused")}
	h, _ := newWebhookHandler(sender, "")

	w := serveWebhook(h, http.MethodPost, anaWebhook, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"dial tcp: connection refused"}`, w.Body.String())
}

func TestLeadWebhook_MalformedJSONIs500(t *testing.T) {
	sender := &capturingSender{}
	h, rec := newWebhookHandler(sender, "")

	w := serveWebhook(h, http.MethodPost, `{"record":`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, sender.sent)
	assert.Equal(t, []string{OutcomeUnexpected}, rec.outcomes)
}

func TestLeadWebhook_BearerSecret(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
		sends  int
	}{
		{"missing header", "", http.StatusUnauthorized, 0},
		{"wrong token", "Bearer nope", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized, 0},
		{"valid token", "Bearer s3cret", http.StatusOK, 1},
		{"case-insensitive scheme", "bearer s3cret", http.StatusOK, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &capturingSender{}
			h, _ := newWebhookHandler(sender, "s3cret")

			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := serveWebhook(h, http.MethodPost, anaWebhook, headers)

			assert.Equal(t, tt.want, w.Code)
			assertCORS(t, w)
			assert.Len(t, sender.sent, tt.sends)
			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestLeadWebhook_MethodNotAllowed(t *testing.T) {
	sender := &capturingSender{}
	h, _ := newWebhookHandler(sender, "")

	w := serveWebhook(h, http.MethodGet, "", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "OPTIONS, POST", w.Header().Get("Allow"))
	assert.Empty(t, sender.sent)
}

func TestNewLeadWebhookHandlerRequiresProcessor(t *testing.T) {
	assert.Panics(t, func() { NewLeadWebhookHandler(nil, "", nil) })
}
