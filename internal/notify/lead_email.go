package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/cadranhq/cadran-platform/internal/leads"
)

const (
	fallbackNotAvailable = "N/A"
	fallbackNotInformed  = "Não informado"
)

// LeadEmailConfig fixes the envelope of every lead notification.
type LeadEmailConfig struct {
	From                string
	To                  string
	WhatsAppCountryCode string
}

var leadEmailHTML = template.Must(template.New("lead").Parse(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>Novo lead cadastrado!</h2>
<p><strong>Nome:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Clínica:</strong> {{.ClinicName}}</p>
<p><strong>Faturamento:</strong> {{.Revenue}}</p>
<p><strong>Maior dor:</strong> {{.PainPoint}}</p>
<p><strong>WhatsApp:</strong> <a href="{{.WhatsAppLink}}">Chamar no WhatsApp</a></p>
<p style="color: #6b7280; font-size: 12px;">ID do lead: {{.ID}}</p>
</div>`))

type leadEmailData struct {
	ID           string
	Name         string
	Email        string
	ClinicName   string
	Revenue      string
	PainPoint    string
	WhatsAppLink string
}

// BuildLeadEmail formats the operator notification for a new lead.
func BuildLeadEmail(cfg LeadEmailConfig, evt leads.LeadEvent) (EmailMessage, error) {
	meta := evt.Meta()
	data := leadEmailData{
		ID:           evt.ID,
		Name:         evt.Name,
		Email:        evt.Email,
		ClinicName:   orDefault(meta.ClinicName, fallbackNotInformed),
		Revenue:      orDefault(meta.Revenue, fallbackNotAvailable),
		PainPoint:    orDefault(meta.PainPoint, fallbackNotAvailable),
		WhatsAppLink: WhatsAppLink(cfg.WhatsAppCountryCode, evt.WhatsApp),
	}

	var html bytes.Buffer
	if err := leadEmailHTML.Execute(&html, data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render lead email: %w", err)
	}

	return EmailMessage{
		From:    cfg.From,
		To:      []string{cfg.To},
		Subject: LeadSubject(evt),
		HTML:    html.String(),
		Text: fmt.Sprintf("Novo lead cadastrado!\n\nNome: %s\nEmail: %s\nClínica: %s\nFaturamento: %s\nMaior dor: %s\nWhatsApp: %s\nID do lead: %s\n",
			data.Name, data.Email, data.ClinicName, data.Revenue, data.PainPoint, data.WhatsAppLink, data.ID),
	}, nil
}

// LeadSubject interpolates the lead name and revenue bracket.
func LeadSubject(evt leads.LeadEvent) string {
	return fmt.Sprintf("🚀 Novo Lead: %s - %s", evt.Name, orDefault(evt.Meta().Revenue, fallbackNotAvailable))
}

// WhatsAppLink builds a click-to-chat URL from a free-form phone string.
func WhatsAppLink(countryCode, phone string) string {
	return "https://wa.me/" + digitsOnly(countryCode) + digitsOnly(phone)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
