package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// LiveWatch records that a session has the live page of an event open. The
// poller only refreshes events with a recent watch.
type LiveWatch struct {
	bun.BaseModel `bun:"table:live_watches"`

	EventID       string    `bun:"event_id,pk"`
	SessionSecret string    `bun:"session_secret,pk"`
	LastSeenAt    time.Time `bun:"last_seen_at,notnull"`

	Session *Session `bun:"rel:belongs-to,join:session_secret=secret"`
}

func (w *LiveWatch) Touch(ctx context.Context, db bun.IDB) error {
	w.LastSeenAt = w.LastSeenAt.UTC()
	if _, err := db.NewInsert().
		Model(w).
		On("CONFLICT (event_id, session_secret) DO UPDATE").
		Set("last_seen_at = EXCLUDED.last_seen_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*LiveWatch).Touch: %w", err)
	}
	return nil
}

// ActiveWatches returns watches seen at or after since whose session is still
// valid at now, with the session loaded.
func ActiveWatches(ctx context.Context, db bun.IDB, since, now time.Time) ([]LiveWatch, error) {
	var watches []LiveWatch
	if err := db.NewSelect().
		Model(&watches).
		Relation("Session").
		Where("live_watch.last_seen_at >= ?", since.UTC()).
		Where("session.expires_at > ?", now.UTC()).
		OrderExpr("live_watch.event_id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("ActiveWatches: %w", err)
	}
	return watches, nil
}

func PurgeStaleWatches(ctx context.Context, db bun.IDB, before time.Time) (int64, error) {
	res, err := db.NewDelete().Model((*LiveWatch)(nil)).Where("last_seen_at < ?", before.UTC()).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("PurgeStaleWatches: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
