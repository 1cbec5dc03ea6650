package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/device"
)

// bulkRequest is the body of POST /sensors/bulk-update. Sensors is nil when
// the key is absent or null.
type bulkRequest struct {
	Sensors *[]bulkRequestItem `json:"sensors"`
}

type bulkRequestItem struct {
	Room  string          `json:"room"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// handleListSensors returns every room with its sensors and their current values.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	rooms := make(map[string]map[string]typeView)
	for _, room := range s.sensors.Registry().Rooms() {
		views, err := roomViews(r, s.sensors, room)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		rooms[room] = views
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// handleRoomSensors returns the sensors of one room.
func (s *Server) handleRoomSensors(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if room == "" || len(room) > maxQueryParamLen {
		writeBadRequest(w, "invalid room")
		return
	}

	views, err := roomViews(r, s.sensors, room)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": room, "sensors": views})
}

func (s *Server) handleGetSensorData(w http.ResponseWriter, r *http.Request) {
	s.serveCurrent(w, r, s.sensors)
}

func (s *Server) handleSetSensorData(w http.ResponseWriter, r *http.Request) {
	s.serveWrite(w, r, s.sensors, "value")
}

func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	s.serveHistory(w, r, s.sensors)
}

func (s *Server) handleSensorHistoryExport(w http.ResponseWriter, r *http.Request) {
	s.serveHistoryExport(w, r, s.sensors)
}

// handleBulkUpdate applies several sensor readings. A malformed batch is
// rejected whole; otherwise items succeed or fail independently and the
// response is 200 with per-item failures.
func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Sensors == nil {
		writeValidationError(w, &device.ValidationError{Field: "sensors", Err: device.ErrMalformedRequest, Detail: "sensors list is required"})
		return
	}

	items := make([]control.BulkItem, len(*req.Sensors))
	for i, in := range *req.Sensors {
		items[i] = control.BulkItem{Room: in.Room, Type: in.Type}
		if isJSONNull(in.Value) {
			continue
		}
		raw, err := device.RawFromJSON(fmt.Sprintf("sensors[%d].value", i), in.Value)
		if err != nil {
			writeValidationError(w, err)
			return
		}
		items[i].Value = &raw
	}

	res, err := s.sensors.BulkSet(r.Context(), items)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	for _, f := range res.Failures {
		s.logger.Warn("bulk item rejected", "index", f.Index, "room", f.Room, "type", f.Type, "error", f.Err)
	}
	writeJSON(w, http.StatusOK, res)
}

// isJSONNull reports whether v was omitted or explicitly null.
func isJSONNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}
