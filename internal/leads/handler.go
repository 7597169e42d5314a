package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/ig-lead-funnel/internal/observability/metrics"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

const maxFormMemory = 1 << 20

// Notifier receives every lead after it has been stored. Implementations
// must not fail the submission; they report problems through their own logs.
type Notifier interface {
	Notify(ctx context.Context, lead *Lead)
}

// HandlerConfig wires the intake and admin handlers.
type HandlerConfig struct {
	Repo         Repository
	Notifier     Notifier
	ThankYouPath string
	Metrics      *metrics.FunnelMetrics
	Logger       *logging.Logger
	Now          func() time.Time
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo         Repository
	notifier     Notifier
	thankYouPath string
	metrics      *metrics.FunnelMetrics
	logger       *logging.Logger
	now          func() time.Time
}

// NewHandler creates a new leads handler
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Repo == nil {
		panic("leads: repository required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	thankYou := cfg.ThankYouPath
	if thankYou == "" {
		thankYou = "/thank-you"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		repo:         cfg.Repo,
		notifier:     cfg.Notifier,
		thankYouPath: thankYou,
		metrics:      cfg.Metrics,
		logger:       logger,
		now:          now,
	}
}

// SubmitIntake handles POST /api/intake/submit.
func (h *Handler) SubmitIntake(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.logger.Warn("intake: unreadable form", "error", err)
		h.metrics.ObserveIntake("invalid")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid form data",
			"details": map[string]string{"form": "Form could not be read"},
		})
		return
	}

	data, fieldErrs := ValidateIntake(formFromRequest(r))
	if len(fieldErrs) > 0 {
		h.metrics.ObserveIntake("invalid")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid form data",
			"details": fieldErrs,
		})
		return
	}

	lead, err := h.repo.Create(r.Context(), data)
	if err != nil {
		h.logger.Error("intake: failed to store lead", "error", err, "email", data.Email)
		h.metrics.ObserveIntake("error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to process submission"})
		return
	}

	h.logger.Info("lead created", "id", lead.ID, "email", lead.Email, "ig_username", Value(lead.IGUsername))

	if h.notifier != nil {
		h.notifier.Notify(r.Context(), lead)
	}

	h.metrics.ObserveIntake("created")
	http.Redirect(w, r, h.thankYouPath, http.StatusSeeOther)
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /api/admin/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := ParseListFilter(r.URL.Query())

	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list leads"})
		return
	}

	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /api/admin/leads/{id}.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Lead not found"})
			return
		}
		h.logger.Error("failed to get lead", "error", err, "id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load lead"})
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// ExportCSV handles GET /api/admin/leads.csv with the same filters as ListLeads.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter := ParseListFilter(r.URL.Query())

	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to export leads", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to export leads"})
		return
	}

	filename := fmt.Sprintf("leads-%s.csv", h.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, leads); err != nil {
		h.logger.Error("failed to write csv", "error", err)
	}
}

func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

func formFromRequest(r *http.Request) IntakeForm {
	return IntakeForm{
		FullName:    r.PostFormValue(FieldFullName),
		Email:       r.PostFormValue(FieldEmail),
		Phone:       r.PostFormValue(FieldPhone),
		Notes:       r.PostFormValue(FieldNotes),
		IGUserID:    r.PostFormValue(FieldIGUserID),
		IGUsername:  r.PostFormValue(FieldIGUsername),
		IGCommentID: r.PostFormValue(FieldIGCommentID),
		IGMediaID:   r.PostFormValue(FieldIGMediaID),
		Campaign:    r.PostFormValue(FieldCampaign),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
