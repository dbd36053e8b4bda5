package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/office-calendar/internal/application"
)

type notificationService interface {
	Feed(ctx context.Context, params application.FeedParams) ([]application.FeedItem, error)
	Dismiss(ctx context.Context, principal application.Principal, notificationID string) error
}

type NotificationHandler struct {
	service   notificationService
	responder responder
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

func (h *NotificationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.FeedParams{Principal: principal}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		params.Page = page
	}
	if pageSize, err := strconv.Atoi(query.Get("pageSize")); err == nil {
		params.PageSize = pageSize
	}
	if includeRead, err := strconv.ParseBool(query.Get("includeRead")); err == nil {
		params.IncludeRead = includeRead
	}

	items, err := h.service.Feed(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]feedItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toFeedItemDTO(item))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, feedResponse{Notifications: dtos})
}

func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Dismiss(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type feedResponse struct {
	Notifications []feedItemDTO `json:"notifications"`
}

type feedItemDTO struct {
	ID          string  `json:"id"`
	ActorID     string  `json:"actor_id"`
	ActorName   string  `json:"actor_name"`
	RecipientID *string `json:"recipient_id,omitempty"`
	Action      string  `json:"action"`
	Message     string  `json:"message"`
	EventID     *string `json:"event_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	IsRead      bool    `json:"is_read"`
}

func toFeedItemDTO(item application.FeedItem) feedItemDTO {
	return feedItemDTO{
		ID:          item.Notification.ID,
		ActorID:     item.Notification.ActorID,
		ActorName:   item.Notification.ActorName,
		RecipientID: item.Notification.RecipientID,
		Action:      string(item.Notification.Action),
		Message:     item.Notification.Message,
		EventID:     item.Notification.EventID,
		CreatedAt:   item.Notification.CreatedAt.UTC().Format(time.RFC3339),
		IsRead:      item.IsRead,
	}
}
