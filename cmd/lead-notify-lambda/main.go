package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/cadranhq/cadran-platform/cmd/mainconfig"
	"github.com/cadranhq/cadran-platform/internal/app/bootstrap"
	appconfig "github.com/cadranhq/cadran-platform/internal/config"
	"github.com/cadranhq/cadran-platform/internal/http/handlers"
	"github.com/cadranhq/cadran-platform/internal/notify"
	"github.com/cadranhq/cadran-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	webhook, err := buildWebhook(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize lead notifier", "error", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, webhook, evt)
	})
}

func buildWebhook(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*handlers.LeadWebhookHandler, error) {
	var ses notify.SESAPI
	if cfg.EmailProvider == notify.ProviderSES {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		ses = mainconfig.NewSESClient(awsCfg, cfg)
	}
	sender, err := bootstrap.BuildEmailSender(cfg, ses, nil, logger)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewLeadNotifier(sender, bootstrap.LeadEmailConfig(cfg), logger)
	return handlers.NewLeadWebhookHandler(notifier, cfg.LeadWebhookSecret, logger), nil
}

func handle(ctx context.Context, webhook *handlers.LeadWebhookHandler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if method == http.MethodGet && (path == "/health" || path == "/_health") {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	switch method {
	case http.MethodOptions:
		webhook.Observe(handlers.OutcomePreflight)
		return respond(http.StatusOK, nil), nil
	case http.MethodPost:
	default:
		return respond(http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"}), nil
	}

	if !webhook.Authorize(headerValue(evt.Headers, "authorization")) {
		webhook.Observe(handlers.OutcomeUnauthorized)
		return respond(http.StatusUnauthorized, map[string]string{"error": "unauthorized"}), nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		webhook.Observe(handlers.OutcomeUnexpected)
		return respond(http.StatusInternalServerError, map[string]string{"error": "invalid body encoding"}), nil
	}

	status, resp := webhook.Respond(ctx, body)
	return respond(status, resp), nil
}

// respond mirrors the HTTP adapter: CORS on every response, JSON when there
// is a body.
func respond(status int, body any) events.APIGatewayV2HTTPResponse {
	out := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{},
	}
	for k, v := range handlers.CORSHeaders {
		out.Headers[k] = v
	}
	if body == nil {
		return out
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		out.StatusCode = http.StatusInternalServerError
		encoded = []byte(`{"error":"encode response"}`)
	}
	out.Headers["Content-Type"] = "application/json"
	out.Body = string(encoded)
	return out
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
