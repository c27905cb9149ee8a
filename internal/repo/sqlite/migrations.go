package sqlite

import "fmt"

type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS monitors (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				kind TEXT NOT NULL,
				url TEXT NOT NULL,
				keyword TEXT,
				interval_sec INTEGER NOT NULL DEFAULT 60,
				enabled INTEGER NOT NULL DEFAULT 1,
				status TEXT NOT NULL DEFAULT 'UNKNOWN',
				last_check TIMESTAMP,
				response_time_ms REAL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS status_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				monitor_id TEXT NOT NULL,
				status TEXT NOT NULL,
				response_time_ms REAL,
				error_message TEXT,
				checked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (monitor_id) REFERENCES monitors(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_status_logs_monitor_time
				ON status_logs (monitor_id, checked_at)`,
			`CREATE TABLE IF NOT EXISTS notifications (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				monitor_id TEXT NOT NULL,
				channel TEXT NOT NULL,
				status TEXT NOT NULL,
				result TEXT NOT NULL,
				message TEXT,
				sent_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS heartbeats (
				monitor_id TEXT PRIMARY KEY,
				last_beat TIMESTAMP NOT NULL
			)`,
		},
	},
}

// runMigrations checks the current schema version and applies any outstanding
// migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(
			"CREATE TABLE schema_version (version INTEGER PRIMARY KEY, applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP)",
		); err != nil {
			return fmt.Errorf("creating schema_version table: %w", err)
		}
	} else {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := s.db.Beginx()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
