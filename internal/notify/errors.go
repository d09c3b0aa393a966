package notify

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a lead notification failed.
type ErrorKind int

const (
	// KindUnexpected covers malformed payloads and anything not classified below.
	KindUnexpected ErrorKind = iota
	// KindValidation means a required field was absent; no send was attempted.
	KindValidation
	// KindProvider means the email provider reported a delivery failure.
	KindProvider
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProvider:
		return "provider"
	default:
		return "unexpected"
	}
}

// StatusFor maps an error kind to the HTTP status returned to the webhook caller.
// Validation failures keep the 500 the database webhook has always received.
func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindProvider:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the only error type LeadNotifier returns.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind from err, defaulting to KindUnexpected.
func KindOf(err error) ErrorKind {
	var notifyErr *Error
	if errors.As(err, &notifyErr) {
		return notifyErr.Kind
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return KindProvider
	}
	return KindUnexpected
}

// ProviderError is a delivery failure reported by an email provider. Its JSON
// form is echoed back to the webhook caller.
type ProviderError struct {
	Provider   string `json:"-"`
	StatusCode int    `json:"statusCode,omitempty"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("notify: %s rejected email (%d %s): %s", e.Provider, e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("notify: %s rejected email (%s): %s", e.Provider, e.Name, e.Message)
}

// ErrorBody renders err as the JSON body the webhook responds with.
func ErrorBody(err error) any {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return map[string]any{"error": providerErr}
	}
	return map[string]string{"error": err.Error()}
}
