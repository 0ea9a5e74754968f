package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var historyTables = []string{"events", "presence_log"}

//goland:noinspection SqlWithoutWhere
func ClearDatabase(ctx context.Context, db *sql.DB) error {
	return inTx(ctx, db, "clear database", func(tx *sql.Tx) error {
		for _, table := range historyTables {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+`;`); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		return nil
	})
}

// PruneBefore deletes history rows older than cutoff and reports how many were removed.
func PruneBefore(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	var removed int64
	err := inTx(ctx, db, "prune history", func(tx *sql.Tx) error {
		for _, table := range historyTables {
			res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE at < ?;`, toUnixMillis(cutoff))
			if err != nil {
				return fmt.Errorf("prune %s: %w", table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("prune %s rows affected: %w", table, err)
			}
			removed += n
		}

		return nil
	})

	return removed, err
}

func inTx(ctx context.Context, db *sql.DB, name string, fn func(*sql.Tx) error) error {
	if db == nil {
		return fmt.Errorf("database is not initialized")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", name, err)
	}

	return nil
}
