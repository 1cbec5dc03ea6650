package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smarthome-app/smarthome-core/internal/notification"
)

// handleListNotifications returns notifications newest first.
//
// Query parameters: unread=true, type=<category>, limit=<n>.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := notification.Filter{
		UnreadOnly: q.Get("unread") == "true",
		Category:   q.Get("type"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	list, err := s.notifications.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing notifications failed", "error", err)
		writeInternalError(w, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": list,
		"count":         len(list),
	})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.notifications.MarkRead(r.Context(), id); err != nil {
		s.writeNotificationError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "read": true})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.notifications.Delete(r.Context(), id); err != nil {
		s.writeNotificationError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeNotificationError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, notification.ErrNotFound) {
		writeNotFound(w, "notification not found")
		return
	}
	s.logger.Error("notification update failed", "id", id, "error", err)
	writeInternalError(w, "failed to update notification")
}
