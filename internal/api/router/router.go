package router

import (
	"encoding/json"
	"net/http"

	"github.com/cadranhq/cadran-platform/internal/http/handlers"
	httpmiddleware "github.com/cadranhq/cadran-platform/internal/http/middleware"
	"github.com/cadranhq/cadran-platform/internal/leads"
	"github.com/cadranhq/cadran-platform/pkg/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	LeadsHandler *leads.Handler
	LeadWebhook  *handlers.LeadWebhookHandler

	// CaptureLimiter throttles POST /leads per client IP. Nil disables it.
	CaptureLimiter     httpmiddleware.Limiter
	CORSAllowedOrigins []string
	AdminAuthSecret    string
	MetricsHandler     http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// The webhook answers its own preflight with fixed CORS headers.
	if cfg.LeadWebhook != nil {
		r.Method(http.MethodOptions, "/webhooks/lead-notify", cfg.LeadWebhook)
		r.Method(http.MethodPost, "/webhooks/lead-notify", cfg.LeadWebhook)
	}

	if cfg.LeadsHandler != nil {
		r.Route("/leads", func(public chi.Router) {
			public.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
			if cfg.CaptureLimiter != nil {
				public.Use(httpmiddleware.RateLimit(cfg.CaptureLimiter, cfg.Logger))
			}
			public.Post("/", cfg.LeadsHandler.CreateLead)
		})

		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/leads", cfg.LeadsHandler.ListLeads)
			admin.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
