package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/skobkin/presencego/internal/domain"
)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Insert stores e, assigning a ULID when e.ID is empty.
func (r *EventRepo) Insert(ctx context.Context, e domain.HistoryEvent) error {
	if e.ID == "" {
		e.ID = newID(e.At)
	}
	payload := e.Payload
	if payload == "" {
		payload = "{}"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events(id, kind, summary, payload, at)
		VALUES(?, ?, ?, ?, ?)
	`, e.ID, string(e.Kind), e.Summary, payload, toUnixMillis(e.At))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// List returns the newest events first.
func (r *EventRepo) List(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoryEvent, error) {
	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if !q.Before.IsZero() {
		where = append(where, "at < ?")
		args = append(args, toUnixMillis(q.Before))
	}

	query := `SELECT id, kind, summary, payload, at FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at DESC, id DESC LIMIT ?"
	args = append(args, q.NormalizedLimit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HistoryEvent, 0)
	for rows.Next() {
		var (
			e    domain.HistoryEvent
			kind string
			atMs int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.Summary, &e.Payload, &atMs); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.At = fromUnixMillis(atMs)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return out, nil
}
