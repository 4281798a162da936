package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// 1: budgets and contacts
	`CREATE TABLE IF NOT EXISTS budgets (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		category   TEXT NOT NULL,
		total      TEXT NOT NULL,
		spent      TEXT NOT NULL DEFAULT '0',
		period     TEXT NOT NULL DEFAULT 'monthly' CHECK(period IN ('daily', 'weekly', 'monthly')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_budgets_user ON budgets(user_id);
	CREATE INDEX IF NOT EXISTS idx_budgets_user_category ON budgets(user_id, category COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS users (
		user_id    TEXT PRIMARY KEY,
		email      TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	// 2: alert log and in-app notifications
	`CREATE TABLE IF NOT EXISTS alert_events (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		budget_id       TEXT NOT NULL,
		category        TEXT NOT NULL,
		bucket          INTEGER NOT NULL CHECK(bucket IN (75, 90, 100)),
		percentage_used REAL NOT NULL,
		email_sent_to   TEXT NOT NULL DEFAULT '',
		created_at      INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alert_events_budget_bucket ON alert_events(budget_id, bucket, created_at);
	CREATE INDEX IF NOT EXISTS idx_alert_events_user ON alert_events(user_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		read       INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);`,

	// 3: metered llm calls
	`CREATE TABLE IF NOT EXISTS llm_usage (
		id            TEXT PRIMARY KEY,
		provider      TEXT NOT NULL,
		model         TEXT NOT NULL,
		purpose       TEXT NOT NULL DEFAULT '',
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cost_usd      REAL NOT NULL DEFAULT 0.0,
		estimated     INTEGER NOT NULL DEFAULT 0,
		failed        INTEGER NOT NULL DEFAULT 0,
		timestamp     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_llm_usage_timestamp ON llm_usage(timestamp);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
