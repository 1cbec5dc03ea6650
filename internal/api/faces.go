package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/faceid"
)

// faceEventRequest is posted by the recognition camera.
type faceEventRequest struct {
	DeviceID   string `json:"device_id"`
	Recognized *bool  `json:"recognized"`
	Timestamp  string `json:"timestamp"`
}

// handleFaceEvent records a recognition result from a camera.
func (s *Server) handleFaceEvent(w http.ResponseWriter, r *http.Request) {
	if s.faces == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "face recognition is not configured")
		return
	}

	var req faceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Recognized == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "recognized is required")
		return
	}

	ev := faceid.Event{DeviceID: req.DeviceID, Recognized: *req.Recognized}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			writeBadRequest(w, "timestamp must be RFC 3339")
			return
		}
		ev.Timestamp = ts
	}

	s.serveFaceResult(w, r, func() (*faceid.Result, error) { return s.faces.Handle(r.Context(), ev) }, nil)
}

// handleFaceIdentify runs a raw camera frame through the classifier and
// records the outcome like a camera event. ?device_id= names the camera.
func (s *Server) handleFaceIdentify(w http.ResponseWriter, r *http.Request) {
	if s.faces == nil || s.classifier == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "face recognition is not configured")
		return
	}

	image, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "could not read image")
		return
	}
	if len(image) == 0 {
		writeBadRequest(w, "image body is required")
		return
	}

	var identity string
	s.serveFaceResult(w, r, func() (*faceid.Result, error) {
		id, res, err := s.faces.Identify(r.Context(), s.classifier, r.URL.Query().Get("device_id"), image)
		identity = id
		return res, err
	}, func() map[string]any {
		return map[string]any{"identity": identity}
	})
}

// serveFaceResult runs handle and maps its outcome. extra adds fields to a
// successful response.
func (s *Server) serveFaceResult(w http.ResponseWriter, r *http.Request, handle func() (*faceid.Result, error), extra func() map[string]any) {
	res, err := handle()
	if errors.Is(err, faceid.ErrClassifierFailed) {
		s.logger.Error("face classifier failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeServiceUnavailable, "face classifier failed")
		return
	}
	warning, err := splitPartial(err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	body := map[string]any{"result": res}
	if warning != "" {
		body["warnings"] = []string{warning}
	}
	if extra != nil {
		for k, v := range extra() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}
