package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store is the postgres gateway adapter for deployments that outgrow the
// local SQLite file.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &Store{pool: pool, log: log}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS monitors (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			url TEXT NOT NULL,
			keyword TEXT,
			interval_sec BIGINT NOT NULL DEFAULT 60,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			status TEXT NOT NULL DEFAULT 'UNKNOWN',
			last_check TIMESTAMPTZ,
			response_time_ms DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS status_logs (
			id BIGSERIAL PRIMARY KEY,
			monitor_id UUID NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			response_time_ms DOUBLE PRECISION,
			error_message TEXT,
			checked_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_status_logs_monitor_time
			ON status_logs (monitor_id, checked_at)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			monitor_id UUID NOT NULL,
			channel TEXT NOT NULL,
			status TEXT NOT NULL,
			result TEXT NOT NULL,
			message TEXT,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS heartbeats (
			monitor_id UUID PRIMARY KEY,
			last_beat TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ---- MonitorStore ----

const monitorCols = `id, name, kind, url, keyword, interval_sec, enabled, status,
       last_check, response_time_ms, created_at`

func (s *Store) scanMonitor(row pgx.Row) (*domain.Monitor, error) {
	var (
		m        domain.Monitor
		kind     string
		status   string
		keyword  *string
		interval int64
	)
	err := row.Scan(&m.ID, &m.Name, &kind, &m.URL, &keyword, &interval,
		&m.Enabled, &status, &m.LastCheck, &m.ResponseTimeMS, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan monitor: %w", err)
	}
	m.Kind = domain.CheckKind(kind)
	m.Status = domain.Status(status)
	if keyword != nil {
		m.Keyword = *keyword
	}
	m.Interval = time.Duration(interval) * time.Second
	return &m, nil
}

func (s *Store) Add(ctx context.Context, m *domain.Monitor) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Status == "" {
		m.Status = domain.StatusUnknown
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitors (id, name, kind, url, keyword, interval_sec, enabled, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`,
		m.ID, m.Name, string(m.Kind), m.URL, m.Keyword,
		int64(m.Interval/time.Second), m.Enabled, string(m.Status), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert monitor: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.Monitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+monitorCols+` FROM monitors ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var out []domain.Monitor
	for rows.Next() {
		m, err := s.scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Monitor, error) {
	return s.scanMonitor(s.pool.QueryRow(ctx,
		`SELECT `+monitorCols+` FROM monitors WHERE id = $1`, id))
}

func (s *Store) Update(ctx context.Context, m *domain.Monitor) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE monitors
		   SET name = $1, url = $2, keyword = NULLIF($3, ''), interval_sec = $4, enabled = $5
		 WHERE id = $6`,
		m.Name, m.URL, m.Keyword, int64(m.Interval/time.Second), m.Enabled, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE monitors SET enabled = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return fmt.Errorf("toggle monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
