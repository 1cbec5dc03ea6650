package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/store"
)

// maxQueryParamLen caps path and query parameters before they reach the registry.
const maxQueryParamLen = 64

// typeView is a registry entry together with its current value.
type typeView struct {
	device.Spec
	Status control.Current `json:"status"`
}

// writeResponse is returned by POST on a single type.
type writeResponse struct {
	Message  string               `json:"message"`
	Result   *control.WriteResult `json:"result"`
	Warnings []string             `json:"warnings,omitempty"`
}

// historyResponse is returned by the history endpoints.
type historyResponse struct {
	Room    string         `json:"room"`
	Type    string         `json:"type"`
	History []store.Record `json:"history"`
	Count   int            `json:"count"`
}

// roomAndType reads and bounds the {room} and {type} URL parameters.
func roomAndType(r *http.Request) (room, typ string, ok bool) {
	room, typ = chi.URLParam(r, "room"), chi.URLParam(r, "type")
	if room == "" || typ == "" || len(room) > maxQueryParamLen || len(typ) > maxQueryParamLen {
		return "", "", false
	}
	return room, typ, true
}

// parseHistoryLimit reads ?limit=. Missing, unparseable and non-positive
// values all yield 0, which the service treats as its default.
func parseHistoryLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// roomViews joins each type in room with its current value.
func roomViews(r *http.Request, svc *control.Service, room string) (map[string]typeView, error) {
	current, err := svc.ListRoom(r.Context(), room)
	if err != nil {
		return nil, err
	}
	views := make(map[string]typeView, len(current))
	for _, cur := range current {
		spec, err := svc.Registry().Lookup(cur.Type)
		if err != nil {
			return nil, err
		}
		views[cur.Type] = typeView{Spec: spec, Status: cur}
	}
	return views, nil
}

// serveCurrent answers GET on a single type. Sensors with no reading yet
// return 404 no_data; binary types report their default state instead.
func (s *Server) serveCurrent(w http.ResponseWriter, r *http.Request, svc *control.Service) {
	room, typ, ok := roomAndType(r)
	if !ok {
		writeBadRequest(w, "invalid room or type")
		return
	}

	cur, err := svc.GetCurrent(r.Context(), room, typ)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if cur.Status == control.StatusNoData {
		writeError(w, http.StatusNotFound, ErrCodeNoData, "no data recorded for "+room+"/"+typ)
		return
	}

	spec, _ := svc.Registry().Lookup(typ) //nolint:errcheck // GetCurrent already checked typ
	writeJSON(w, http.StatusOK, typeView{Spec: spec, Status: cur})
}

// serveWrite answers POST on a single type. The value is read from the body
// key field ("value" for sensors, "command" for actuators).
func (s *Server) serveWrite(w http.ResponseWriter, r *http.Request, svc *control.Service, field string) {
	room, typ, ok := roomAndType(r)
	if !ok {
		writeBadRequest(w, "invalid room or type")
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	raw, err := device.RawFromJSON(field, body[field])
	if err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := svc.SetValue(r.Context(), room, typ, raw)
	warning, err := splitPartial(err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := writeResponse{Message: room + "/" + typ + " updated", Result: result}
	if warning != "" {
		s.logger.Warn("write stored without history", "room", room, "type", typ, "error", warning)
		resp.Warnings = []string{warning}
	}
	writeJSON(w, http.StatusOK, resp)
}

// serveHistory answers GET .../history.
func (s *Server) serveHistory(w http.ResponseWriter, r *http.Request, svc *control.Service) {
	room, typ, records, ok := s.loadHistory(w, r, svc)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Room: room, Type: typ, History: records, Count: len(records)})
}

// loadHistory reads the history named by the request, writing the error
// response itself when it fails.
func (s *Server) loadHistory(w http.ResponseWriter, r *http.Request, svc *control.Service) (string, string, []store.Record, bool) {
	room, typ, ok := roomAndType(r)
	if !ok {
		writeBadRequest(w, "invalid room or type")
		return "", "", nil, false
	}
	limit := parseHistoryLimit(r.URL.Query().Get("limit"))

	records, err := svc.GetHistory(r.Context(), room, typ, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", "", nil, false
	}
	return room, typ, records, true
}
