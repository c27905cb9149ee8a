// Package httpapi exposes the engine's collaborator-facing surface: the
// status feed, monitor management, heartbeat ingestion, and notification
// settings. Rendering is someone else's job.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

// SupervisorAPI is the slice of the supervisor the handlers use.
type SupervisorAPI interface {
	Start(m domain.Monitor)
	Stop(id uuid.UUID)
	Reconfigure(m domain.Monitor)
	CheckNow(ctx context.Context, id uuid.UUID) (domain.CheckOutcome, error)
}

// DispatcherAPI is the slice of the dispatcher the handlers use.
type DispatcherAPI interface {
	UpdateSettings(s domain.NotificationSettings)
	Settings() domain.NotificationSettings
	Test(ctx context.Context, ch domain.Channel) (string, error)
}

type Server struct {
	Logger     *zap.Logger
	Store      repo.Store
	Supervisor SupervisorAPI
	Dispatcher DispatcherAPI
}

func NewServer(l *zap.Logger, store repo.Store, sup SupervisorAPI, disp DispatcherAPI) *Server {
	return &Server{Logger: l, Store: store, Supervisor: sup, Dispatcher: disp}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/status", s.handleStatusFeed)

	r.Route("/api/monitors", func(r chi.Router) {
		r.Get("/", s.handleListMonitors)
		r.Post("/", s.handleCreateMonitor)
		r.Get("/{id}", s.handleGetMonitor)
		r.Put("/{id}", s.handleUpdateMonitor)
		r.Delete("/{id}", s.handleDeleteMonitor)
		r.Post("/{id}/enable", s.handleEnableMonitor)
		r.Post("/{id}/disable", s.handleDisableMonitor)
		r.Post("/{id}/check", s.handleCheckNow)
		r.Get("/{id}/logs", s.handleMonitorLogs)
	})

	r.Post("/api/heartbeat/{id}", s.handleHeartbeat)
	r.Get("/api/notifications", s.handleNotificationHistory)
	r.Post("/api/notifications/test", s.handleTestNotification)
	r.Get("/api/settings", s.handleGetSettings)
	r.Put("/api/settings", s.handleUpdateSettings)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func parseID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}
