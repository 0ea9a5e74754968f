package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; the schema version is tracked in PRAGMA user_version.
var migrations = []string{
	`CREATE TABLE events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL DEFAULT '{}',
		at INTEGER NOT NULL
	);
	CREATE INDEX idx_events_kind_at ON events(kind, at);
	CREATE INDEX idx_events_at ON events(at);
	CREATE TABLE presence_log (
		id TEXT PRIMARY KEY,
		activity TEXT NOT NULL,
		cleared INTEGER NOT NULL DEFAULT 0,
		at INTEGER NOT NULL
	);
	CREATE INDEX idx_presence_log_at ON presence_log(at);`,
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	return v, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported %d", current, len(migrations))
	}

	for version := current + 1; version <= len(migrations); version++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[version-1]); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, version)); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("set schema version %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}

	return nil
}
