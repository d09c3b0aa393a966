package leads

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Metadata holds the optional qualification answers from the landing form.
type Metadata struct {
	Revenue    string `json:"revenue,omitempty"`
	ClinicName string `json:"clinicName,omitempty"`
	PainPoint  string `json:"painPoint,omitempty"`
}

// LeadEvent is the lead record carried by a database insert webhook.
type LeadEvent struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	WhatsApp string    `json:"whatsapp"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Meta returns the event metadata, never nil.
func (e LeadEvent) Meta() Metadata {
	if e.Metadata == nil {
		return Metadata{}
	}
	return *e.Metadata
}

// WebhookPayload is the body a database "row inserted" webhook delivers.
type WebhookPayload struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Schema    string          `json:"schema"`
	Record    LeadEvent       `json:"record"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// Validate checks the fields the notification cannot be built without.
func (p WebhookPayload) Validate() error {
	if strings.TrimSpace(p.Record.Email) == "" {
		return &FieldError{Field: "record.email", Err: ErrMissingEmail}
	}
	return nil
}

// DecodeWebhookPayload parses a webhook body. It does not validate.
func DecodeWebhookPayload(r io.Reader) (WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return WebhookPayload{}, fmt.Errorf("leads: decode webhook payload: %w", err)
	}
	return payload, nil
}

// InsertPayload wraps a stored lead the way the database webhook would.
func InsertPayload(lead *Lead) WebhookPayload {
	return WebhookPayload{
		Type:   "INSERT",
		Table:  "leads",
		Schema: "public",
		Record: lead.Event(),
	}
}

// Lead represents a lead submitted through the landing page
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	WhatsApp  string    `json:"whatsapp"`
	Metadata  Metadata  `json:"metadata"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Event converts a stored lead into the webhook record shape.
func (l *Lead) Event() LeadEvent {
	meta := l.Metadata
	return LeadEvent{
		ID:       l.ID,
		Name:     l.Name,
		Email:    l.Email,
		WhatsApp: l.WhatsApp,
		Metadata: &meta,
	}
}

// CreateLeadRequest represents the landing form body
type CreateLeadRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	WhatsApp   string `json:"whatsapp"`
	Revenue    string `json:"revenue"`
	ClinicName string `json:"clinicName"`
	PainPoint  string `json:"painPoint"`
	Source     string `json:"source"`
}

// Normalize trims surrounding whitespace from every field.
func (r *CreateLeadRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.WhatsApp = strings.TrimSpace(r.WhatsApp)
	r.Revenue = strings.TrimSpace(r.Revenue)
	r.ClinicName = strings.TrimSpace(r.ClinicName)
	r.PainPoint = strings.TrimSpace(r.PainPoint)
	r.Source = strings.TrimSpace(r.Source)
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &FieldError{Field: "name", Err: ErrInvalidName}
	}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return &FieldError{Field: "email", Err: ErrMissingEmail}
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return &FieldError{Field: "email", Err: ErrInvalidEmail}
	}
	return nil
}

func (r *CreateLeadRequest) metadata() Metadata {
	return Metadata{
		Revenue:    r.Revenue,
		ClinicName: r.ClinicName,
		PainPoint:  r.PainPoint,
	}
}

func (r *CreateLeadRequest) source() string {
	if r.Source == "" {
		return "landing"
	}
	return r.Source
}

// ListLeadsFilter controls admin listing pagination
type ListLeadsFilter struct {
	Limit  int
	Offset int
}
