package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store is the in-memory gateway adapter, used in tests and for DSN-less dev
// runs. All mutations hold the write lock so a check's status update and log
// append are observed together.
type Store struct {
	mu       sync.RWMutex
	monitors map[uuid.UUID]*domain.Monitor
	logs     []domain.StatusLogEntry
	notes    []domain.NotificationRecord
	beats    map[uuid.UUID]time.Time
	settings domain.NotificationSettings
	nextLog  int64
	nextNote int64
}

func New() *Store {
	return &Store{
		monitors: make(map[uuid.UUID]*domain.Monitor),
		beats:    make(map[uuid.UUID]time.Time),
		nextLog:  1,
		nextNote: 1,
	}
}

func (s *Store) Close() error { return nil }

// ---- MonitorStore ----

func (s *Store) Add(ctx context.Context, m *domain.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Status == "" {
		m.Status = domain.StatusUnknown
	}
	cp := *m
	s.monitors[m.ID] = &cp
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitors[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *Store) Update(ctx context.Context, m *domain.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.monitors[m.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = m.Name
	cur.URL = m.URL
	cur.Keyword = m.Keyword
	cur.Interval = m.Interval
	cur.Enabled = m.Enabled
	return nil
}

func (s *Store) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return repo.ErrNotFound
	}
	m.Enabled = enabled
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.monitors[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.monitors, id)
	delete(s.beats, id)
	kept := s.logs[:0]
	for _, l := range s.logs {
		if l.MonitorID != id {
			kept = append(kept, l)
		}
	}
	s.logs = kept
	return nil
}

// ---- LogStore ----

func (s *Store) RecordCheck(ctx context.Context, monitorID uuid.UUID, out domain.CheckOutcome) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[monitorID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	checkedAt := out.CheckedAt
	m.Status = out.Status
	m.LastCheck = &checkedAt
	m.ResponseTimeMS = out.ResponseTimeMS

	entry := domain.StatusLogEntry{
		ID:             s.nextLog,
		MonitorID:      monitorID,
		Status:         out.Status,
		ResponseTimeMS: out.ResponseTimeMS,
		Error:          out.Error,
		CheckedAt:      checkedAt,
	}
	s.nextLog++
	s.logs = append(s.logs, entry)
	return entry.ID, nil
}

func (s *Store) Logs(ctx context.Context, monitorID uuid.UUID, limit int) ([]domain.StatusLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StatusLogEntry
	for i := len(s.logs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.logs[i].MonitorID == monitorID {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

func (s *Store) UptimePercent(ctx context.Context, monitorID uuid.UUID, window time.Duration) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().UTC().Add(-window)
	total, up := 0, 0
	for _, l := range s.logs {
		if l.MonitorID != monitorID || l.CheckedAt.Before(cutoff) {
			continue
		}
		total++
		if l.Status == domain.StatusUp {
			up++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(up) / float64(total) * 100, nil
}

func (s *Store) PruneLogs(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.logs[:0]
	var removed int64
	for _, l := range s.logs {
		if l.CheckedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	s.logs = kept
	return removed, nil
}

// ---- NotificationStore ----

func (s *Store) AppendNotification(ctx context.Context, r *domain.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextNote
	s.nextNote++
	if r.SentAt.IsZero() {
		r.SentAt = time.Now().UTC()
	}
	s.notes = append(s.notes, *r)
	return nil
}

func (s *Store) NotificationHistory(ctx context.Context, limit int) ([]domain.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.NotificationRecord
	for i := len(s.notes) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, s.notes[i])
	}
	return out, nil
}

// ---- SettingsStore ----

func (s *Store) LoadSettings(ctx context.Context) (domain.NotificationSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, set domain.NotificationSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = set
	return nil
}

// ---- HeartbeatStore ----

func (s *Store) RecordBeat(ctx context.Context, monitorID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beats[monitorID] = at
	return nil
}

func (s *Store) LastBeat(ctx context.Context, monitorID uuid.UUID) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.beats[monitorID]
	if !ok {
		return nil, nil
	}
	cp := t
	return &cp, nil
}
