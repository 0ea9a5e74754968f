package persistence

import (
	"time"

	"github.com/oklog/ulid/v2"
)

func toUnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func fromUnixMillis(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(v)
}

// newID returns a ULID whose time part matches at, so ids sort like timestamps.
func newID(at time.Time) string {
	if at.IsZero() {
		return ulid.Make().String()
	}

	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}

	return 0
}
