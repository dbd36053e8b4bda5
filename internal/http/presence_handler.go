package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/office-calendar/internal/application"
)

// presenceDateLayout is the wire format for presence dates.
const presenceDateLayout = "2006-01-02"

type presenceService interface {
	SetPresence(ctx context.Context, params application.SetPresenceParams) (application.PresenceEntry, error)
	ListPresence(ctx context.Context, params application.ListPresenceParams) ([]application.PresenceEntry, error)
}

type PresenceHandler struct {
	service   presenceService
	responder responder
}

func NewPresenceHandler(service presenceService, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

func (h *PresenceHandler) Set(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req presenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.SetPresenceParams{
		Principal: principal,
		Status:    application.PresenceStatus(req.Status),
	}
	// A bad date stays zero and fails validation in the service.
	if date, err := time.Parse(presenceDateLayout, req.Date); err == nil {
		params.Date = date
	}

	entry, err := h.service.SetPresence(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPresenceDTO(entry))
}

func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.ListPresenceParams{Principal: principal}
	if from, err := time.Parse(presenceDateLayout, query.Get("from")); err == nil {
		params.From = from
	}
	if to, err := time.Parse(presenceDateLayout, query.Get("to")); err == nil {
		params.To = to
	}

	entries, err := h.service.ListPresence(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]presenceDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, toPresenceDTO(entry))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPresenceResponse{Entries: dtos})
}

type presenceRequest struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

type listPresenceResponse struct {
	Entries []presenceDTO `json:"entries"`
}

type presenceDTO struct {
	UserID    string `json:"user_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

func toPresenceDTO(entry application.PresenceEntry) presenceDTO {
	return presenceDTO{
		UserID:    entry.UserID,
		Date:      entry.Date.Format(presenceDateLayout),
		Status:    string(entry.Status),
		UpdatedAt: entry.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
