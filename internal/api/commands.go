package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smarthome-app/smarthome-core/internal/control"
)

func (s *Server) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	s.serveCurrent(w, r, s.commands)
}

func (s *Server) handleSetCommand(w http.ResponseWriter, r *http.Request) {
	s.serveWrite(w, r, s.commands, "command")
}

func (s *Server) handleCommandHistory(w http.ResponseWriter, r *http.Request) {
	s.serveHistory(w, r, s.commands)
}

func (s *Server) handleCommandHistoryExport(w http.ResponseWriter, r *http.Request) {
	s.serveHistoryExport(w, r, s.commands)
}

// handleRoomStatus returns the actuator states of a room that have actually
// been commanded. Types never written are left out; 404 when none were.
func (s *Server) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if room == "" || len(room) > maxQueryParamLen {
		writeBadRequest(w, "invalid room")
		return
	}

	current, err := s.commands.ListRoom(r.Context(), room)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	states := make(map[string]control.Current, len(current))
	for _, cur := range current {
		if cur.Status == control.StatusPresent {
			states[cur.Type] = cur
		}
	}
	if len(states) == 0 {
		writeError(w, http.StatusNotFound, ErrCodeNoData, "no commands recorded for "+room)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": room, "status": states})
}
