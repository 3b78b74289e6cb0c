package model_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"attendex/src-server/model"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })
	if err := model.CreateSchema(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return db
}

func newSession(token string, expiresAt time.Time) *model.Session {
	s := &model.Session{
		Secret:    uuid.NewString(),
		UserID:    "u-1",
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	s.SetRoles([]string{"ROLE_ORGANIZER", ""})
	return s
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	now := time.Now()

	s := newSession("tok-1", now.Add(time.Hour))
	if err := s.Insert(ctx, db); err != nil {
		t.Fatal(err)
	}

	// case: found
	func() {
		got, err := model.FindSession(ctx, db, s.Secret)
		if err != nil {
			t.Fatal(err)
		}
		if got.Token != "tok-1" || got.Roles != "ROLE_ORGANIZER" {
			t.Errorf("session = %+v", got)
		}
		if got.Expired(now) {
			t.Error("fresh session reported expired")
		}
	}()

	// case: token replaced
	func() {
		s.Token = "tok-2"
		s.ForcePasswordChange = false
		if err := s.ReplaceToken(ctx, db); err != nil {
			t.Fatal(err)
		}
		got, err := model.FindSession(ctx, db, s.Secret)
		if err != nil {
			t.Fatal(err)
		}
		if got.Token != "tok-2" {
			t.Errorf("token = %q, want tok-2", got.Token)
		}
	}()

	// case: deleted by token
	func() {
		n, err := model.DeleteSessionsByToken(ctx, db, "tok-2")
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("deleted %d sessions, want 1", n)
		}
		if _, err := model.FindSession(ctx, db, s.Secret); !errors.Is(err, model.ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	}()
}

func TestPurgeExpiredSessions(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	now := time.Now()

	for _, s := range []*model.Session{
		newSession("a", now.Add(-time.Minute)),
		newSession("b", now.Add(-time.Hour)),
		newSession("c", now.Add(time.Hour)),
	} {
		if err := s.Insert(ctx, db); err != nil {
			t.Fatal(err)
		}
	}
	n, err := model.PurgeExpiredSessions(ctx, db, now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("purged %d, want 2", n)
	}
	count, err := db.NewSelect().Model((*model.Session)(nil)).Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("%d sessions left, want 1", count)
	}
}

func TestLiveWatch(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	now := time.Now()

	live := newSession("live", now.Add(time.Hour))
	dead := newSession("dead", now.Add(-time.Hour))
	for _, s := range []*model.Session{live, dead} {
		if err := s.Insert(ctx, db); err != nil {
			t.Fatal(err)
		}
	}
	for _, w := range []*model.LiveWatch{
		{EventID: "e1", SessionSecret: live.Secret, LastSeenAt: now.Add(-10 * time.Minute)},
		{EventID: "e2", SessionSecret: dead.Secret, LastSeenAt: now},
	} {
		if err := w.Touch(ctx, db); err != nil {
			t.Fatal(err)
		}
	}

	// case: stale watch excluded
	watches, err := model.ActiveWatches(ctx, db, now.Add(-time.Minute), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(watches) != 0 {
		t.Errorf("watches = %+v, want none", watches)
	}

	// case: touching refreshes the watch
	if err := (&model.LiveWatch{EventID: "e1", SessionSecret: live.Secret, LastSeenAt: now}).Touch(ctx, db); err != nil {
		t.Fatal(err)
	}
	watches, err = model.ActiveWatches(ctx, db, now.Add(-time.Minute), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(watches) != 1 || watches[0].Session == nil || watches[0].Session.Token != "live" {
		t.Errorf("watches = %+v", watches)
	}

	n, err := model.PurgeStaleWatches(ctx, db, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("purged %d, want 0", n)
	}
}

func TestArrivalCursor(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)

	c, err := model.FindArrivalCursor(ctx, db, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if !c.LastSeen.IsZero() || c.Announced != 0 {
		t.Errorf("new cursor = %+v", c)
	}

	seen := time.Date(2025, time.March, 10, 8, 5, 0, 0, time.UTC)
	c.LastSeen, c.Announced, c.UpdatedAt = seen, 3, time.Now()
	if err := c.Upsert(ctx, db); err != nil {
		t.Fatal(err)
	}
	c.Announced = 5
	c.SetSeenIDs([]string{"a1", "a2"})
	if err := c.Upsert(ctx, db); err != nil {
		t.Fatal(err)
	}
	got, err := model.FindArrivalCursor(ctx, db, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Announced != 5 || !got.LastSeen.Equal(seen) {
		t.Errorf("cursor = %+v", got)
	}
	if ids := got.SeenIDs(); len(ids) != 2 || ids[0] != "a1" || ids[1] != "a2" {
		t.Errorf("seen ids = %v", ids)
	}
}
