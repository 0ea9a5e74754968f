package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/skobkin/presencego/internal/domain"
)

type PresenceRepo struct {
	db *sql.DB
}

func NewPresenceRepo(db *sql.DB) *PresenceRepo {
	return &PresenceRepo{db: db}
}

func (r *PresenceRepo) Insert(ctx context.Context, rec domain.PresenceRecord) error {
	if rec.ID == "" {
		rec.ID = newID(rec.At)
	}
	activity := rec.Activity
	if activity == "" {
		activity = "null"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO presence_log(id, activity, cleared, at)
		VALUES(?, ?, ?, ?)
	`, rec.ID, activity, boolToInt(rec.Cleared), toUnixMillis(rec.At))
	if err != nil {
		return fmt.Errorf("insert presence: %w", err)
	}

	return nil
}

// Latest returns the most recent record, or false when the log is empty.
func (r *PresenceRepo) Latest(ctx context.Context) (domain.PresenceRecord, bool, error) {
	var (
		rec     domain.PresenceRecord
		cleared int
		atMs    int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, activity, cleared, at
		FROM presence_log
		ORDER BY at DESC, id DESC
		LIMIT 1
	`).Scan(&rec.ID, &rec.Activity, &cleared, &atMs)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PresenceRecord{}, false, nil
	}
	if err != nil {
		return domain.PresenceRecord{}, false, fmt.Errorf("load latest presence: %w", err)
	}
	rec.Cleared = cleared != 0
	rec.At = fromUnixMillis(atMs)

	return rec, true, nil
}
