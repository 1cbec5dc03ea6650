package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/auth"
	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/faceid"
	"github.com/smarthome-app/smarthome-core/internal/infrastructure/config"
	"github.com/smarthome-app/smarthome-core/internal/infrastructure/logging"
	"github.com/smarthome-app/smarthome-core/internal/notification"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// NotificationStore lists and updates stored notifications.
type NotificationStore interface {
	List(ctx context.Context, filter notification.Filter) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// HealthChecker is implemented by every backing service reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	Security      config.SecurityConfig
	Logger        *logging.Logger
	Sensors       *control.Service
	Commands      *control.Service
	Notifications NotificationStore
	Faces         *faceid.Relay
	Classifier    faceid.Classifier // optional: enables /face-id/identify
	Auth          *auth.Authenticator
	Health        map[string]HealthChecker
	Version       string
}

// Server is the HTTP API server.
type Server struct {
	cfg           config.APIConfig
	secCfg        config.SecurityConfig
	logger        *logging.Logger
	sensors       *control.Service
	commands      *control.Service
	notifications NotificationStore
	faces         *faceid.Relay
	classifier    faceid.Classifier
	auth          *auth.Authenticator
	health        map[string]HealthChecker
	version       string
	server        *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sensors == nil || deps.Commands == nil {
		return nil, fmt.Errorf("sensor and command services are required")
	}
	if deps.Notifications == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	if deps.Security.RequireAuth && deps.Auth == nil {
		return nil, fmt.Errorf("authenticator is required when require_auth is set")
	}

	return &Server{
		cfg:           deps.Config,
		secCfg:        deps.Security,
		logger:        deps.Logger,
		sensors:       deps.Sensors,
		commands:      deps.Commands,
		notifications: deps.Notifications,
		faces:         deps.Faces,
		classifier:    deps.Classifier,
		auth:          deps.Auth,
		health:        deps.Health,
		version:       deps.Version,
	}, nil
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
