package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each backing service check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)

			r.Route("/sensors", func(r chi.Router) {
				r.Get("/", s.handleListSensors)
				r.Post("/bulk-update", s.handleBulkUpdate)
				r.Get("/{room}", s.handleRoomSensors)
			})

			r.Route("/sensor-data/{room}/{type}", func(r chi.Router) {
				r.Get("/", s.handleGetSensorData)
				r.Post("/", s.handleSetSensorData)
				r.Get("/history", s.handleSensorHistory)
				r.Get("/history/export", s.handleSensorHistoryExport)
			})

			r.Route("/command/{room}/{type}", func(r chi.Router) {
				r.Get("/", s.handleGetCommand)
				r.Post("/", s.handleSetCommand)
				r.Get("/history", s.handleCommandHistory)
				r.Get("/history/export", s.handleCommandHistoryExport)
			})

			r.Get("/status/{room}", s.handleRoomStatus)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.handleListNotifications)
				r.Patch("/{id}/read", s.handleMarkNotificationRead)
				r.Delete("/{id}", s.handleDeleteNotification)
			})

			r.Post("/face-recognition", s.handleFaceEvent)
			r.Post("/face-id/identify", s.handleFaceIdentify)
		})
	})

	return r
}

// handleHealth reports the server and every backing service. A failing
// service turns the response into 503 so load balancers can react.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	services := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.health[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			services[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		services[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":   status,
		"version":  s.version,
		"services": services,
	})
}
