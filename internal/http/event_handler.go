package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/office-calendar/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	DeleteAllEvents(ctx context.Context, principal application.Principal) error
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
	GetEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	RespondToEvent(ctx context.Context, params application.RespondToEventParams) error
}

type manualNotifier interface {
	ManualNotify(ctx context.Context, params application.ManualNotifyParams) (int, error)
}

type EventHandler struct {
	service   eventService
	notifier  manualNotifier
	responder responder
}

func NewEventHandler(service eventService, notifier manualNotifier, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, notifier: notifier, responder: newResponder(defaultLogger(logger))}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	input, vErr := req.toInput()
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventDTO(event))
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	input, vErr := req.toInput()
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   chi.URLParam(r, "id"),
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteEvent(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteAllEvents(r.Context(), principal); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.ListEventsParams{Principal: principal}
	fields := map[string]string{}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fields["from"] = "from must be an RFC 3339 timestamp"
		} else {
			params.From = t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fields["to"] = "to must be an RFC 3339 timestamp"
		} else {
			params.To = t
		}
	}
	if len(fields) > 0 {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: fields})
		return
	}

	events, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]eventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, toEventDTO(event))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: dtos})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.GetEvent(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	err := h.service.RespondToEvent(r.Context(), application.RespondToEventParams{
		Principal: principal,
		EventID:   chi.URLParam(r, "id"),
		Response:  application.AttendeeResponse(req.Response),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) Notify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.notifier == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	notified, err := h.notifier.ManualNotify(r.Context(), application.ManualNotifyParams{
		Principal:    principal,
		EventID:      chi.URLParam(r, "id"),
		Message:      req.Message,
		RecipientIDs: req.RecipientIDs,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, notifyResponse{Notified: notified})
}

type eventRequest struct {
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	StartsAt       string   `json:"starts_at"`
	EndsAt         string   `json:"ends_at"`
	RoomID         *string  `json:"room_id"`
	RecurrenceRule *string  `json:"recurrence_rule"`
	AttendeeIDs    []string `json:"attendee_ids"`
}

func (r eventRequest) toInput() (application.EventInput, *application.ValidationError) {
	input := application.EventInput{
		Title:          r.Title,
		RoomID:         r.RoomID,
		RecurrenceRule: r.RecurrenceRule,
		AttendeeIDs:    r.AttendeeIDs,
	}
	if r.Description != nil {
		input.Description = *r.Description
	}

	// An absent timestamp stays zero so the service reports it as a
	// missing field; a present but unparseable one is a format error.
	fields := map[string]string{}
	if r.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, r.StartsAt)
		if err != nil {
			fields["starts_at"] = "starts_at must be an RFC 3339 timestamp"
		} else {
			input.StartsAt = t
		}
	}
	if r.EndsAt != "" {
		t, err := time.Parse(time.RFC3339, r.EndsAt)
		if err != nil {
			fields["ends_at"] = "ends_at must be an RFC 3339 timestamp"
		} else {
			input.EndsAt = t
		}
	}
	if len(fields) > 0 {
		return application.EventInput{}, &application.ValidationError{FieldErrors: fields}
	}
	return input, nil
}

type respondRequest struct {
	Response string `json:"response"`
}

type notifyRequest struct {
	Message      string   `json:"message"`
	RecipientIDs []string `json:"recipient_ids"`
}

type notifyResponse struct {
	Notified int `json:"notified"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type attendeeDTO struct {
	UserID   string `json:"user_id"`
	Response string `json:"response"`
}

type eventDTO struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    *string       `json:"description,omitempty"`
	StartsAt       string        `json:"starts_at"`
	EndsAt         string        `json:"ends_at"`
	OrganizerID    string        `json:"organizer_id"`
	RoomID         *string       `json:"room_id,omitempty"`
	RecurrenceRule *string       `json:"recurrence_rule,omitempty"`
	Attendees      []attendeeDTO `json:"attendees"`
	CreatedAt      string        `json:"created_at"`
	UpdatedAt      string        `json:"updated_at"`
}

func toEventDTO(event application.Event) eventDTO {
	attendees := make([]attendeeDTO, 0, len(event.Attendees))
	for _, attendee := range event.Attendees {
		attendees = append(attendees, attendeeDTO{
			UserID:   attendee.UserID,
			Response: string(attendee.Response),
		})
	}

	var description *string
	if event.Description != "" {
		description = &event.Description
	}

	return eventDTO{
		ID:             event.ID,
		Title:          event.Title,
		Description:    description,
		StartsAt:       event.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:         event.EndsAt.UTC().Format(time.RFC3339),
		OrganizerID:    event.OrganizerID,
		RoomID:         event.RoomID,
		RecurrenceRule: event.RecurrenceRule,
		Attendees:      attendees,
		CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      event.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
