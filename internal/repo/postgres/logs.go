package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

// ---- LogStore ----

// RecordCheck runs the status update and the log append in one transaction
// so concurrent readers never see them disagree.
func (s *Store) RecordCheck(ctx context.Context, monitorID uuid.UUID, out domain.CheckOutcome) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin record check: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE monitors
		   SET status = $1, last_check = $2, response_time_ms = $3
		 WHERE id = $4`,
		string(out.Status), out.CheckedAt, out.ResponseTimeMS, monitorID,
	)
	if err != nil {
		return 0, fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, repo.ErrNotFound
	}

	var logID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO status_logs (monitor_id, status, response_time_ms, error_message, checked_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING id`,
		monitorID, string(out.Status), out.ResponseTimeMS, out.Error, out.CheckedAt,
	).Scan(&logID)
	if err != nil {
		return 0, fmt.Errorf("append log: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit record check: %w", err)
	}
	return logID, nil
}

func (s *Store) Logs(ctx context.Context, monitorID uuid.UUID, limit int) ([]domain.StatusLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, monitor_id, status, response_time_ms, COALESCE(error_message, ''), checked_at
		  FROM status_logs
		 WHERE monitor_id = $1
		 ORDER BY checked_at DESC, id DESC
		 LIMIT $2`, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("monitor logs: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusLogEntry
	for rows.Next() {
		var (
			e      domain.StatusLogEntry
			status string
		)
		if err := rows.Scan(&e.ID, &e.MonitorID, &status, &e.ResponseTimeMS, &e.Error, &e.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		e.Status = domain.Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UptimePercent(ctx context.Context, monitorID uuid.UUID, window time.Duration) (float64, error) {
	var total, up int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'UP' THEN 1 ELSE 0 END), 0)
		  FROM status_logs
		 WHERE monitor_id = $1 AND checked_at >= $2`,
		monitorID, time.Now().UTC().Add(-window),
	).Scan(&total, &up)
	if err != nil {
		return 0, fmt.Errorf("uptime: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(up) / float64(total) * 100, nil
}

func (s *Store) PruneLogs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM status_logs WHERE checked_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---- NotificationStore ----

func (s *Store) AppendNotification(ctx context.Context, r *domain.NotificationRecord) error {
	if r.SentAt.IsZero() {
		r.SentAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (monitor_id, channel, status, result, message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		r.MonitorID, string(r.Channel), string(r.Status), r.Result, r.Message, r.SentAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (s *Store) NotificationHistory(ctx context.Context, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, monitor_id, channel, status, result, COALESCE(message, ''), sent_at
		  FROM notifications
		 ORDER BY sent_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("notification history: %w", err)
	}
	defer rows.Close()

	var out []domain.NotificationRecord
	for rows.Next() {
		var (
			r       domain.NotificationRecord
			channel string
			status  string
		)
		if err := rows.Scan(&r.ID, &r.MonitorID, &channel, &status, &r.Result, &r.Message, &r.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		r.Channel = domain.Channel(channel)
		r.Status = domain.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- SettingsStore ----

func (s *Store) LoadSettings(ctx context.Context) (domain.NotificationSettings, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	var out domain.NotificationSettings
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.NotificationSettings{}, fmt.Errorf("scan setting: %w", err)
		}
		switch k {
		case "webhook_url":
			out.WebhookURL = v
		case "aws_access_key":
			out.AWSAccessKey = v
		case "aws_secret_key":
			out.AWSSecretKey = v
		case "aws_region":
			out.AWSRegion = v
		case "sns_topic_arn":
			out.SNSTopicARN = v
		}
	}
	return out, rows.Err()
}

func (s *Store) SaveSettings(ctx context.Context, set domain.NotificationSettings) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save settings: %w", err)
	}
	defer tx.Rollback(ctx)

	pairs := map[string]string{
		"webhook_url":    set.WebhookURL,
		"aws_access_key": set.AWSAccessKey,
		"aws_secret_key": set.AWSSecretKey,
		"aws_region":     set.AWSRegion,
		"sns_topic_arn":  set.SNSTopicARN,
	}
	for k, v := range pairs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, k, v); err != nil {
			return fmt.Errorf("save setting %s: %w", k, err)
		}
	}
	return tx.Commit(ctx)
}

// ---- HeartbeatStore ----

func (s *Store) RecordBeat(ctx context.Context, monitorID uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO heartbeats (monitor_id, last_beat) VALUES ($1, $2)
		ON CONFLICT (monitor_id) DO UPDATE SET last_beat = EXCLUDED.last_beat`,
		monitorID, at,
	)
	if err != nil {
		return fmt.Errorf("record beat: %w", err)
	}
	return nil
}

func (s *Store) LastBeat(ctx context.Context, monitorID uuid.UUID) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT last_beat FROM heartbeats WHERE monitor_id = $1`, monitorID).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last beat: %w", err)
	}
	return &t, nil
}
