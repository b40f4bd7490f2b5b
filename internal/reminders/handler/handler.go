// Package handler exposes the reminder engine over HTTP. It only reads and
// mutates reminder records; delivering reminders to a user is someone
// else's job.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kinship/internal/reminders/frequency"
	"kinship/internal/reminders/models"
	dErrors "kinship/pkg/domain-errors"
	"kinship/pkg/platform/httputil"
	"kinship/pkg/platform/validation"
)

// Orchestrator is the generation and maintenance surface.
type Orchestrator interface {
	GenerateForContactID(ctx context.Context, contactID string) (*models.Reminder, error)
	GenerateAll(ctx context.Context) (*models.BatchResult, error)
	RefreshAll(ctx context.Context) (*models.RefreshResult, error)
	Cleanup(ctx context.Context, daysOld int) (int, error)
	RegenerateBirthdayRemindersForID(ctx context.Context, contactID string) (int, error)
	RegenerateAllBirthdayReminders(ctx context.Context) (*models.BatchResult, error)
	Workload(ctx context.Context) (*models.Workload, error)
	UpcomingBirthdays(ctx context.Context, daysAhead int) ([]models.BirthdayOccurrence, error)
	TodaysBirthdays(ctx context.Context) ([]*models.Contact, error)
}

// Lifecycle is the per-record status surface.
type Lifecycle interface {
	MarkSent(ctx context.Context, id string) (*models.Reminder, error)
	Dismiss(ctx context.Context, id string) (*models.Reminder, error)
	MarkMultipleAsSent(ctx context.Context, ids []string) (int, error)
	DismissMultiple(ctx context.Context, ids []string) (int, error)
	GetByContactID(ctx context.Context, contactID string, opts models.ListOptions) ([]*models.Reminder, error)
	GetDue(ctx context.Context) ([]*models.Reminder, error)
}

type Handler struct {
	orchestrator Orchestrator
	lifecycle    Lifecycle
	logger       *slog.Logger
}

func New(orchestrator Orchestrator, lifecycle Lifecycle, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		lifecycle:    lifecycle,
		logger:       logger,
	}
}

// Register mounts the engine routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/reminders/generate", h.HandleGenerateAll)
	r.Post("/reminders/refresh", h.HandleRefreshAll)
	r.Post("/reminders/cleanup", h.HandleCleanup)
	r.Get("/reminders/due", h.HandleGetDue)
	r.Get("/reminders/workload", h.HandleWorkload)
	r.Post("/reminders/{id}/sent", h.HandleMarkSent)
	r.Post("/reminders/{id}/dismiss", h.HandleDismiss)
	r.Post("/reminders/bulk/sent", h.HandleBulkSent)
	r.Post("/reminders/bulk/dismiss", h.HandleBulkDismiss)
	r.Post("/reminders/suggest-frequency", h.HandleSuggestFrequency)

	r.Get("/contacts/{id}/reminders", h.HandleContactReminders)
	r.Post("/contacts/{id}/reminders/generate", h.HandleGenerateForContact)
	r.Post("/contacts/{id}/birthday-reminders/regenerate", h.HandleRegenerateBirthday)
	r.Post("/birthday-reminders/regenerate", h.HandleRegenerateAllBirthdays)

	r.Get("/birthdays/upcoming", h.HandleUpcomingBirthdays)
	r.Get("/birthdays/today", h.HandleTodaysBirthdays)
}

// HandleGenerateAll implements POST /reminders/generate.
// Output: { "processed": 12, "created": 3, "skipped": 9, "errors": [] }
func (h *Handler) HandleGenerateAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.orchestrator.GenerateAll(r.Context())
	if err != nil {
		h.writeFailure(w, r, "generate all reminders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleRefreshAll implements POST /reminders/refresh.
func (h *Handler) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.orchestrator.RefreshAll(r.Context())
	if err != nil {
		h.writeFailure(w, r, "refresh reminders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type cleanupRequest struct {
	DaysOld int `json:"days_old"`
}

// HandleCleanup implements POST /reminders/cleanup.
// Input: { "days_old": 30 }
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if !h.decode(w, r, &req) {
		return
	}
	deleted, err := h.orchestrator.Cleanup(r.Context(), req.DaysOld)
	if err != nil {
		h.writeFailure(w, r, "clean up reminders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// HandleGetDue implements GET /reminders/due.
func (h *Handler) HandleGetDue(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.lifecycle.GetDue(r.Context())
	if err != nil {
		h.writeFailure(w, r, "get due reminders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"reminders": emptyIfNil(reminders)})
}

// HandleWorkload implements GET /reminders/workload.
func (h *Handler) HandleWorkload(w http.ResponseWriter, r *http.Request) {
	workload, err := h.orchestrator.Workload(r.Context())
	if err != nil {
		h.writeFailure(w, r, "compute workload", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, workload)
}

// HandleMarkSent implements POST /reminders/{id}/sent.
func (h *Handler) HandleMarkSent(w http.ResponseWriter, r *http.Request) {
	reminder, err := h.lifecycle.MarkSent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, "mark reminder sent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reminder)
}

// HandleDismiss implements POST /reminders/{id}/dismiss.
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	reminder, err := h.lifecycle.Dismiss(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, "dismiss reminder", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reminder)
}

type bulkRequest struct {
	IDs []string `json:"ids"`
}

// HandleBulkSent implements POST /reminders/bulk/sent.
// Input: { "ids": ["..."] }; Output: { "updated": 2 }
func (h *Handler) HandleBulkSent(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.lifecycle.MarkMultipleAsSent(r.Context(), req.IDs)
	if err != nil {
		h.writeFailure(w, r, "bulk mark sent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// HandleBulkDismiss implements POST /reminders/bulk/dismiss.
func (h *Handler) HandleBulkDismiss(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.lifecycle.DismissMultiple(r.Context(), req.IDs)
	if err != nil {
		h.writeFailure(w, r, "bulk dismiss", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

type suggestFrequencyRequest struct {
	InteractionDates []time.Time `json:"interaction_dates"`
}

// HandleSuggestFrequency implements POST /reminders/suggest-frequency.
// Input: { "interaction_dates": ["2026-01-01T00:00:00Z", ...] }
// Output: a cadence suggestion with confidence derived from the history.
func (h *Handler) HandleSuggestFrequency(w http.ResponseWriter, r *http.Request) {
	var req suggestFrequencyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validation.CheckSliceCount("interaction_dates", len(req.InteractionDates), validation.MaxBulkIDs); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, frequency.Suggest(req.InteractionDates))
}

// HandleContactReminders implements GET /contacts/{id}/reminders.
// Optional query params: type, status (repeatable), limit, offset.
func (h *Handler) HandleContactReminders(w http.ResponseWriter, r *http.Request) {
	opts := models.ListOptions{}
	if t := r.URL.Query().Get("type"); t != "" {
		rt := models.ReminderType(t)
		if !rt.IsValid() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid reminder type"))
			return
		}
		opts.Type = rt
	}
	for _, raw := range r.URL.Query()["status"] {
		status := models.ReminderStatus(raw)
		if !status.IsValid() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid reminder status"))
			return
		}
		opts.Statuses = append(opts.Statuses, status)
	}
	opts.Limit = intQuery(r, "limit", 0)
	opts.Offset = intQuery(r, "offset", 0)

	reminders, err := h.lifecycle.GetByContactID(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		h.writeFailure(w, r, "list contact reminders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"reminders": emptyIfNil(reminders)})
}

// HandleGenerateForContact implements POST /contacts/{id}/reminders/generate.
// Output: the created reminder, or { "created": false } when policy skipped.
func (h *Handler) HandleGenerateForContact(w http.ResponseWriter, r *http.Request) {
	reminder, err := h.orchestrator.GenerateForContactID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, "generate reminder for contact", err)
		return
	}
	if reminder == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"created": false})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reminder)
}

// HandleRegenerateBirthday implements POST /contacts/{id}/birthday-reminders/regenerate.
func (h *Handler) HandleRegenerateBirthday(w http.ResponseWriter, r *http.Request) {
	created, err := h.orchestrator.RegenerateBirthdayRemindersForID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, "regenerate birthday reminders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"created": created})
}

// HandleRegenerateAllBirthdays implements POST /birthday-reminders/regenerate.
func (h *Handler) HandleRegenerateAllBirthdays(w http.ResponseWriter, r *http.Request) {
	result, err := h.orchestrator.RegenerateAllBirthdayReminders(r.Context())
	if err != nil {
		h.writeFailure(w, r, "regenerate all birthday reminders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleUpcomingBirthdays implements GET /birthdays/upcoming?days=30.
func (h *Handler) HandleUpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	days := intQuery(r, "days", 30)
	upcoming, err := h.orchestrator.UpcomingBirthdays(r.Context(), days)
	if err != nil {
		h.writeFailure(w, r, "list upcoming birthdays", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"birthdays": emptyIfNilOccurrences(upcoming)})
}

// HandleTodaysBirthdays implements GET /birthdays/today.
func (h *Handler) HandleTodaysBirthdays(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.orchestrator.TodaysBirthdays(r.Context())
	if err != nil {
		h.writeFailure(w, r, "list today's birthdays", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"contacts": emptyIfNilContacts(contacts)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return false
	}
	return true
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.logger.ErrorContext(r.Context(), "request failed",
		"action", action,
		"error", err,
	)
	httputil.WriteError(w, err)
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func emptyIfNil(reminders []*models.Reminder) []*models.Reminder {
	if reminders == nil {
		return []*models.Reminder{}
	}
	return reminders
}

func emptyIfNilOccurrences(occurrences []models.BirthdayOccurrence) []models.BirthdayOccurrence {
	if occurrences == nil {
		return []models.BirthdayOccurrence{}
	}
	return occurrences
}

func emptyIfNilContacts(contacts []*models.Contact) []*models.Contact {
	if contacts == nil {
		return []*models.Contact{}
	}
	return contacts
}
