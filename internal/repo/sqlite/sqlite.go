package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store is the default persistence gateway: a single local SQLite file.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the database at dbPath, enables WAL mode, and runs
// pending schema migrations.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// WAL keeps readers (status feed) from blocking the check-loop writers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	// The modernc driver is not safe for concurrent writes on one connection
	// set without busy handling; monitors all share this pool.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ---- row types ----

type monitorRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Kind           string         `db:"kind"`
	URL            string         `db:"url"`
	Keyword        sql.NullString `db:"keyword"`
	IntervalSec    int64          `db:"interval_sec"`
	Enabled        bool           `db:"enabled"`
	Status         string         `db:"status"`
	LastCheck      sql.NullTime   `db:"last_check"`
	ResponseTimeMS sql.NullFloat64 `db:"response_time_ms"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r monitorRow) toDomain() (domain.Monitor, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return domain.Monitor{}, fmt.Errorf("parse monitor id %q: %w", r.ID, err)
	}
	m := domain.Monitor{
		ID:        id,
		Name:      r.Name,
		Kind:      domain.CheckKind(r.Kind),
		URL:       r.URL,
		Keyword:   r.Keyword.String,
		Interval:  time.Duration(r.IntervalSec) * time.Second,
		Enabled:   r.Enabled,
		Status:    domain.Status(r.Status),
		CreatedAt: r.CreatedAt,
	}
	if r.LastCheck.Valid {
		t := r.LastCheck.Time
		m.LastCheck = &t
	}
	if r.ResponseTimeMS.Valid {
		v := r.ResponseTimeMS.Float64
		m.ResponseTimeMS = &v
	}
	return m, nil
}

type logRow struct {
	ID             int64           `db:"id"`
	MonitorID      string          `db:"monitor_id"`
	Status         string          `db:"status"`
	ResponseTimeMS sql.NullFloat64 `db:"response_time_ms"`
	ErrorMessage   sql.NullString  `db:"error_message"`
	CheckedAt      time.Time       `db:"checked_at"`
}

func (r logRow) toDomain() domain.StatusLogEntry {
	id, _ := uuid.Parse(r.MonitorID)
	e := domain.StatusLogEntry{
		ID:        r.ID,
		MonitorID: id,
		Status:    domain.Status(r.Status),
		Error:     r.ErrorMessage.String,
		CheckedAt: r.CheckedAt,
	}
	if r.ResponseTimeMS.Valid {
		v := r.ResponseTimeMS.Float64
		e.ResponseTimeMS = &v
	}
	return e
}

// ---- MonitorStore ----

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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitors (id, name, kind, url, keyword, interval_sec, enabled, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.Name, string(m.Kind), m.URL, nullStr(m.Keyword),
		int64(m.Interval/time.Second), m.Enabled, string(m.Status), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert monitor: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.Monitor, error) {
	var rows []monitorRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, kind, url, keyword, interval_sec, enabled, status,
		       last_check, response_time_ms, created_at
		  FROM monitors
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	out := make([]domain.Monitor, 0, len(rows))
	for _, r := range rows {
		m, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Monitor, error) {
	var r monitorRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, name, kind, url, keyword, interval_sec, enabled, status,
		       last_check, response_time_ms, created_at
		  FROM monitors WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	m, err := r.toDomain()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) Update(ctx context.Context, m *domain.Monitor) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE monitors
		   SET name = ?, url = ?, keyword = ?, interval_sec = ?, enabled = ?
		 WHERE id = ?`,
		m.Name, m.URL, nullStr(m.Keyword), int64(m.Interval/time.Second), m.Enabled, m.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	return requireRow(res)
}

func (s *Store) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE monitors SET enabled = ? WHERE id = ?`, enabled, id.String())
	if err != nil {
		return fmt.Errorf("toggle monitor: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitors WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	return requireRow(res)
}

// ---- LogStore ----

func (s *Store) RecordCheck(ctx context.Context, monitorID uuid.UUID, out domain.CheckOutcome) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin record check: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE monitors
		   SET status = ?, last_check = ?, response_time_ms = ?
		 WHERE id = ?`,
		string(out.Status), out.CheckedAt, nullFloat(out.ResponseTimeMS), monitorID.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("update status: %w", err)
	}
	if err := requireRow(res); err != nil {
		return 0, err
	}

	ins, err := tx.ExecContext(ctx, `
		INSERT INTO status_logs (monitor_id, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, ?)`,
		monitorID.String(), string(out.Status), nullFloat(out.ResponseTimeMS),
		nullStr(out.Error), out.CheckedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("append log: %w", err)
	}
	logID, err := ins.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("log id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit record check: %w", err)
	}
	return logID, nil
}

func (s *Store) Logs(ctx context.Context, monitorID uuid.UUID, limit int) ([]domain.StatusLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []logRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, monitor_id, status, response_time_ms, error_message, checked_at
		  FROM status_logs
		 WHERE monitor_id = ?
		 ORDER BY checked_at DESC, id DESC
		 LIMIT ?`, monitorID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("monitor logs: %w", err)
	}
	out := make([]domain.StatusLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) UptimePercent(ctx context.Context, monitorID uuid.UUID, window time.Duration) (float64, error) {
	cutoff := time.Now().UTC().Add(-window)
	var agg struct {
		Total int64 `db:"total"`
		Up    int64 `db:"up_count"`
	}
	err := s.db.GetContext(ctx, &agg, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status = 'UP' THEN 1 ELSE 0 END), 0) AS up_count
		  FROM status_logs
		 WHERE monitor_id = ? AND checked_at >= ?`, monitorID.String(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("uptime: %w", err)
	}
	if agg.Total == 0 {
		return 0, nil
	}
	return float64(agg.Up) / float64(agg.Total) * 100, nil
}

func (s *Store) PruneLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM status_logs WHERE checked_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune logs: %w", err)
	}
	return res.RowsAffected()
}

// ---- NotificationStore ----

func (s *Store) AppendNotification(ctx context.Context, r *domain.NotificationRecord) error {
	if r.SentAt.IsZero() {
		r.SentAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (monitor_id, channel, status, result, message, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.MonitorID.String(), string(r.Channel), string(r.Status), r.Result, r.Message, r.SentAt,
	)
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) NotificationHistory(ctx context.Context, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []struct {
		ID        int64     `db:"id"`
		MonitorID string    `db:"monitor_id"`
		Channel   string    `db:"channel"`
		Status    string    `db:"status"`
		Result    string    `db:"result"`
		Message   string    `db:"message"`
		SentAt    time.Time `db:"sent_at"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, monitor_id, channel, status, result, message, sent_at
		  FROM notifications
		 ORDER BY sent_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("notification history: %w", err)
	}
	out := make([]domain.NotificationRecord, 0, len(rows))
	for _, r := range rows {
		id, _ := uuid.Parse(r.MonitorID)
		out = append(out, domain.NotificationRecord{
			ID:        r.ID,
			MonitorID: id,
			Channel:   domain.Channel(r.Channel),
			Status:    domain.Status(r.Status),
			Result:    r.Result,
			Message:   r.Message,
			SentAt:    r.SentAt,
		})
	}
	return out, nil
}

// ---- SettingsStore ----

func (s *Store) LoadSettings(ctx context.Context) (domain.NotificationSettings, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM settings`); err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("load settings: %w", err)
	}
	var out domain.NotificationSettings
	for _, r := range rows {
		switch r.Key {
		case "webhook_url":
			out.WebhookURL = r.Value
		case "aws_access_key":
			out.AWSAccessKey = r.Value
		case "aws_secret_key":
			out.AWSSecretKey = r.Value
		case "aws_region":
			out.AWSRegion = r.Value
		case "sns_topic_arn":
			out.SNSTopicARN = r.Value
		}
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, set domain.NotificationSettings) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save settings: %w", err)
	}
	defer tx.Rollback()

	pairs := map[string]string{
		"webhook_url":    set.WebhookURL,
		"aws_access_key": set.AWSAccessKey,
		"aws_secret_key": set.AWSSecretKey,
		"aws_region":     set.AWSRegion,
		"sns_topic_arn":  set.SNSTopicARN,
	}
	for k, v := range pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("save setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// ---- HeartbeatStore ----

func (s *Store) RecordBeat(ctx context.Context, monitorID uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO heartbeats (monitor_id, last_beat) VALUES (?, ?)
		ON CONFLICT (monitor_id) DO UPDATE SET last_beat = excluded.last_beat`,
		monitorID.String(), at,
	)
	if err != nil {
		return fmt.Errorf("record beat: %w", err)
	}
	return nil
}

func (s *Store) LastBeat(ctx context.Context, monitorID uuid.UUID) (*time.Time, error) {
	var t time.Time
	err := s.db.GetContext(ctx, &t,
		`SELECT last_beat FROM heartbeats WHERE monitor_id = ?`, monitorID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last beat: %w", err)
	}
	return &t, nil
}

// ---- helpers ----

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}
