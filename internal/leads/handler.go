package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cadranhq/cadran-platform/pkg/logging"
	"github.com/go-chi/chi/v5"
)

const maxLeadBodyBytes = 64 << 10

// CreatedHook is told about every lead stored through the landing form.
type CreatedHook interface {
	LeadCreated(ctx context.Context, lead *Lead) error
}

// CaptureObserver records capture outcomes. Satisfied by the metrics package.
type CaptureObserver interface {
	ObserveCapture(status string)
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo     Repository
	hook     CreatedHook
	observer CaptureObserver
	logger   *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// WithCreatedHook dispatches stored leads to hook after the insert succeeds.
func (h *Handler) WithCreatedHook(hook CreatedHook) *Handler {
	h.hook = hook
	return h
}

// WithObserver attaches a capture metrics observer.
func (h *Handler) WithObserver(observer CaptureObserver) *Handler {
	h.observer = observer
	return h
}

// CreateLead handles POST /leads from the landing page form
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLeadBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode lead request", "error", err)
		h.observe("invalid")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Normalize()

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if IsValidationError(err) {
			h.observe("invalid")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create lead", "error", err)
		h.observe("error")
		writeError(w, http.StatusInternalServerError, "failed to store lead")
		return
	}

	h.logger.Info("lead captured", "lead_id", lead.ID, "source", lead.Source)
	h.observe("created")

	if h.hook != nil {
		if err := h.hook.LeadCreated(r.Context(), lead); err != nil {
			h.logger.Error("lead created hook failed", "error", err, "lead_id", lead.ID)
		}
	}

	writeJSON(w, http.StatusCreated, lead)
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /admin/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := ListLeadsFilter{
		Limit:  50,
		Offset: 0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /admin/leads/{leadID}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	if leadID == "" {
		writeError(w, http.StatusBadRequest, "missing lead id")
		return
	}

	lead, err := h.repo.GetByID(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to get lead", "error", err, "lead_id", leadID)
		writeError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

func (h *Handler) observe(status string) {
	if h.observer != nil {
		h.observer.ObserveCapture(status)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
