package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// ErrNotFound is returned by Get-style calls when no row matches.
var ErrNotFound = errors.New("not found")

// Ports (interfaces) — the engine consumes these; adapters live in
// repo/memory, repo/sqlite and repo/postgres.

type MonitorStore interface {
	Add(ctx context.Context, m *domain.Monitor) error
	List(ctx context.Context) ([]domain.Monitor, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Monitor, error)
	// Update rewrites the configurable fields (name, url, keyword, interval,
	// enabled). Status fields are only written through RecordCheck.
	Update(ctx context.Context, m *domain.Monitor) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type LogStore interface {
	// RecordCheck applies one check's write as a single logical unit: the
	// monitor's status/last_check/response_time update and the status log
	// append happen atomically, so a reader never sees a monitor disagreeing
	// with its own last log entry. Returns the new log entry id.
	RecordCheck(ctx context.Context, monitorID uuid.UUID, out domain.CheckOutcome) (int64, error)
	Logs(ctx context.Context, monitorID uuid.UUID, limit int) ([]domain.StatusLogEntry, error)
	UptimePercent(ctx context.Context, monitorID uuid.UUID, window time.Duration) (float64, error)
	// PruneLogs deletes entries checked before the cutoff; returns rows removed.
	PruneLogs(ctx context.Context, before time.Time) (int64, error)
}

type NotificationStore interface {
	AppendNotification(ctx context.Context, r *domain.NotificationRecord) error
	NotificationHistory(ctx context.Context, limit int) ([]domain.NotificationRecord, error)
}

type SettingsStore interface {
	LoadSettings(ctx context.Context) (domain.NotificationSettings, error)
	SaveSettings(ctx context.Context, s domain.NotificationSettings) error
}

type HeartbeatStore interface {
	RecordBeat(ctx context.Context, monitorID uuid.UUID, at time.Time) error
	LastBeat(ctx context.Context, monitorID uuid.UUID) (*time.Time, error)
}

// Store is the full persistence gateway contract.
type Store interface {
	MonitorStore
	LogStore
	NotificationStore
	SettingsStore
	HeartbeatStore
	Close() error
}
