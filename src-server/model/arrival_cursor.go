package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ArrivalCursor remembers the latest arrival already announced for an event
// so restarts don't repeat notifications.
type ArrivalCursor struct {
	bun.BaseModel `bun:"table:arrival_cursors"`

	EventID  string    `bun:"event_id,pk"`
	LastSeen time.Time `bun:"last_seen,notnull"`
	// LastSeenIDs are the attendees that arrived exactly at LastSeen, comma
	// separated, so a later arrival at the same instant is still new.
	LastSeenIDs string    `bun:"last_seen_ids,notnull"`
	Announced   int64     `bun:"announced,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (c *ArrivalCursor) SeenIDs() []string {
	if c.LastSeenIDs == "" {
		return nil
	}
	return strings.Split(c.LastSeenIDs, ",")
}

func (c *ArrivalCursor) SetSeenIDs(ids []string) {
	c.LastSeenIDs = strings.Join(ids, ",")
}

func (c *ArrivalCursor) Upsert(ctx context.Context, db bun.IDB) error {
	if c.EventID == "" {
		return fmt.Errorf("(*ArrivalCursor).Upsert: event id is empty")
	}
	c.LastSeen, c.UpdatedAt = c.LastSeen.UTC(), c.UpdatedAt.UTC()
	if _, err := db.NewInsert().
		Model(c).
		On("CONFLICT (event_id) DO UPDATE").
		Set("last_seen = EXCLUDED.last_seen").
		Set("last_seen_ids = EXCLUDED.last_seen_ids").
		Set("announced = EXCLUDED.announced").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*ArrivalCursor).Upsert: %w", err)
	}
	return nil
}

// FindArrivalCursor returns a zero cursor for events never announced.
func FindArrivalCursor(ctx context.Context, db bun.IDB, eventID string) (*ArrivalCursor, error) {
	c := &ArrivalCursor{EventID: eventID}
	if err := db.NewSelect().Model(c).WherePK().Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ArrivalCursor{EventID: eventID}, nil
		}
		return nil, fmt.Errorf("FindArrivalCursor: %w", err)
	}
	return c, nil
}
