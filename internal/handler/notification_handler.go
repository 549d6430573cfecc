package handler

import (
	"net/http"

	"surplus-market/internal/model"
	"surplus-market/internal/service"

	"github.com/rs/zerolog"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

// List handles GET /api/notifications requests. ?unread=true limits the page
// to unread notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		badRequest(w, model.ErrCodeInvalidRequest, err.Error(), nil)
		return
	}
	unread, err := queryBool(r, "unread")
	if err != nil {
		badRequest(w, model.ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	list, err := h.service.List(r.Context(), caller, unread != nil && *unread, page)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkRead handles POST /api/notifications/{id}/read requests.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), caller, id); err != nil {
		writeError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/notifications/read-all requests.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	n, err := h.service.MarkAllRead(r.Context(), caller)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Delete handles DELETE /api/notifications/{id} requests.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		writeError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
