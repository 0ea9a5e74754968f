package domain

import "context"

type EventRepository interface {
	Insert(ctx context.Context, e HistoryEvent) error
	List(ctx context.Context, q HistoryQuery) ([]HistoryEvent, error)
}

type PresenceRepository interface {
	Insert(ctx context.Context, r PresenceRecord) error
	Latest(ctx context.Context) (PresenceRecord, bool, error)
}
