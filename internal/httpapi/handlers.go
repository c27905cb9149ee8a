package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

// uptimeWindow is the lookback used for the percentage in the status feed.
const uptimeWindow = 24 * time.Hour

// ---- status feed ----

type statusRow struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	Enabled        bool       `json:"enabled"`
	LastCheck      *time.Time `json:"last_check,omitempty"`
	ResponseTimeMS *float64   `json:"response_time_ms,omitempty"`
	UptimePercent  float64    `json:"uptime_percent"`
}

func (s *Server) handleStatusFeed(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.Store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "list monitors")
		return
	}
	out := make([]statusRow, 0, len(monitors))
	for _, m := range monitors {
		uptime, err := s.Store.UptimePercent(r.Context(), m.ID, uptimeWindow)
		if err != nil {
			s.Logger.Warn("uptime_query_failed", zap.String("monitor_id", m.ID.String()), zap.Error(err))
		}
		out = append(out, statusRow{
			ID:             m.ID.String(),
			Name:           m.Name,
			Kind:           string(m.Kind),
			Status:         string(m.Status),
			Enabled:        m.Enabled,
			LastCheck:      m.LastCheck,
			ResponseTimeMS: m.ResponseTimeMS,
			UptimePercent:  uptime,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// ---- monitors ----

type monitorPayload struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	Keyword     string `json:"keyword"`
	IntervalSec int64  `json:"interval_sec"`
	Enabled     *bool  `json:"enabled"`
}

func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.Store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "list monitors")
		return
	}
	s.writeJSON(w, http.StatusOK, monitors)
}

func (s *Server) handleCreateMonitor(w http.ResponseWriter, r *http.Request) {
	var p monitorPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.IntervalSec == 0 {
		p.IntervalSec = 60
	}
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	m := domain.Monitor{
		Name:     p.Name,
		Kind:     domain.CheckKind(p.Kind),
		URL:      p.URL,
		Keyword:  p.Keyword,
		Interval: time.Duration(p.IntervalSec) * time.Second,
		Enabled:  enabled,
		Status:   domain.StatusUnknown,
	}
	if p.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	// Heartbeat monitors are pinged by their targets, not probed at a URL.
	if m.Kind != domain.KindHeartbeat && p.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := m.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Store.Add(r.Context(), &m); err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not add monitor")
		return
	}
	if m.Enabled {
		s.Supervisor.Start(m)
	}
	s.Logger.Info("monitor_created",
		zap.String("monitor_id", m.ID.String()),
		zap.String("kind", string(m.Kind)),
		zap.String("url", m.URL),
	)
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad monitor id")
		return
	}
	m, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "monitor not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "get monitor")
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad monitor id")
		return
	}
	cur, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "monitor not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "get monitor")
		return
	}

	var p monitorPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.Name != "" {
		cur.Name = p.Name
	}
	if p.URL != "" {
		cur.URL = p.URL
	}
	if p.Kind != "" && domain.CheckKind(p.Kind) != cur.Kind {
		s.writeError(w, http.StatusBadRequest, "kind cannot be changed")
		return
	}
	if cur.Kind == domain.KindKeyword && p.Keyword != "" {
		cur.Keyword = p.Keyword
	}
	if p.IntervalSec != 0 {
		cur.Interval = time.Duration(p.IntervalSec) * time.Second
	}
	if p.Enabled != nil {
		cur.Enabled = *p.Enabled
	}
	if err := cur.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Stop the old schedule before the record changes, then restart with
	// the fresh parameters.
	s.Supervisor.Stop(cur.ID)
	if err := s.Store.Update(r.Context(), cur); err != nil {
		s.writeError(w, http.StatusInternalServerError, "update monitor")
		return
	}
	s.Supervisor.Reconfigure(*cur)
	s.writeJSON(w, http.StatusOK, cur)
}

func (s *Server) handleDeleteMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad monitor id")
		return
	}
	// Task first, record second: no check may be in flight when the row goes.
	s.Supervisor.Stop(id)
	err := s.Store.Delete(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "monitor not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "delete monitor")
		return
	}
	s.Logger.Info("monitor_deleted", zap.String("monitor_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnableMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad monitor id")
		return
	}
	if err := s.Store.SetEnabled(r.Context(), id, true); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "monitor not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "enable monitor")
		return
	}
	m, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "get monitor")
		return
	}
	s.Supervisor.Start(*m)
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDisableMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad monitor id")
		return
	}
	// Cancel the task before the record is disabled in storage.
	s.Supervisor.Stop(id)
	if err := s.Store.SetEnabled(r.Context(), id, false); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "monitor not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "disable monitor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad monitor id")
		return
	}
	out, err := s.Supervisor.CheckNow(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "monitor not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "check failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":           out.Status,
		"response_time_ms": out.ResponseTimeMS,
		"error":            out.Error,
		"checked_at":       out.CheckedAt,
	})
}

func (s *Server) handleMonitorLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad monitor id")
		return
	}
	limit := queryInt(r, "limit", 100)
	logs, err := s.Store.Logs(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "monitor logs")
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

// ---- heartbeat ingestion ----

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "bad monitor id")
		return
	}
	if _, err := s.Store.Get(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "monitor not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "get monitor")
		return
	}
	if err := s.Store.RecordBeat(r.Context(), id, time.Now().UTC()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "record heartbeat")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- notifications ----

func (s *Server) handleNotificationHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	history, err := s.Store.NotificationHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "notification history")
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

type testPayload struct {
	Channel string `json:"channel"`
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	var p testPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	detail, err := s.Dispatcher.Test(r.Context(), domain.Channel(p.Channel))
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": false, "detail": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "detail": detail})
}

// ---- settings ----

type settingsPayload struct {
	WebhookURL   *string `json:"webhook_url"`
	AWSAccessKey *string `json:"aws_access_key"`
	AWSSecretKey *string `json:"aws_secret_key"`
	AWSRegion    *string `json:"aws_region"`
	SNSTopicARN  *string `json:"sns_topic_arn"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set := s.Dispatcher.Settings()
	if set.AWSSecretKey != "" {
		set.AWSSecretKey = "********"
	}
	s.writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	set := s.Dispatcher.Settings()
	if p.WebhookURL != nil {
		set.WebhookURL = *p.WebhookURL
	}
	if p.AWSAccessKey != nil {
		set.AWSAccessKey = *p.AWSAccessKey
	}
	if p.AWSSecretKey != nil {
		set.AWSSecretKey = *p.AWSSecretKey
	}
	if p.AWSRegion != nil {
		set.AWSRegion = *p.AWSRegion
	}
	if p.SNSTopicARN != nil {
		set.SNSTopicARN = *p.SNSTopicARN
	}
	if err := s.Store.SaveSettings(r.Context(), set); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save settings")
		return
	}
	// Swap the dispatcher snapshot only after the store accepted the write.
	s.Dispatcher.UpdateSettings(set)
	s.Logger.Info("settings_updated")
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
