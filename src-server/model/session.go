package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a signed-in browser. The browser only holds Secret; the bearer
// token never leaves the server.
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	Secret              string    `bun:"secret,pk"`       // required
	UserID              string    `bun:"user_id,notnull"` // required
	OrganizationID      string    `bun:"organization_id"` // empty for stewards
	Token               string    `bun:"token,notnull"`   // required
	Roles               string    `bun:"roles,notnull"`   // comma separated
	ForcePasswordChange bool      `bun:"force_password_change,notnull"`
	ExpiresAt           time.Time `bun:"expires_at,notnull"` // required
	CreatedAt           time.Time `bun:"created_at,notnull"` // required
}

func (s *Session) SetRoles(roles []string) {
	s.Roles = strings.Join(slices.DeleteFunc(slices.Clone(roles), func(r string) bool { return r == "" }), ",")
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) Insert(ctx context.Context, db bun.IDB) error {
	if s.Secret == "" {
		return fmt.Errorf("(*Session).Insert: secret is empty")
	}
	// sqlite compares timestamps as text
	s.ExpiresAt, s.CreatedAt = s.ExpiresAt.UTC(), s.CreatedAt.UTC()
	if _, err := db.NewInsert().Model(s).Exec(ctx); err != nil {
		return fmt.Errorf("(*Session).Insert: %w", err)
	}
	return nil
}

// ReplaceToken stores a token reissued by the API, e.g. after a password
// change.
func (s *Session) ReplaceToken(ctx context.Context, db bun.IDB) error {
	s.ExpiresAt = s.ExpiresAt.UTC()
	if _, err := db.NewUpdate().
		Model(s).
		Column("token", "roles", "force_password_change", "expires_at").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Session).ReplaceToken: %w", err)
	}
	return nil
}

func FindSession(ctx context.Context, db bun.IDB, secret string) (*Session, error) {
	s := new(Session)
	if err := db.NewSelect().Model(s).Where("secret = ?", secret).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("FindSession: %w", err)
	}
	return s, nil
}

func DeleteSession(ctx context.Context, db bun.IDB, secret string) error {
	if _, err := db.NewDelete().Model((*Session)(nil)).Where("secret = ?", secret).Exec(ctx); err != nil {
		return fmt.Errorf("DeleteSession: %w", err)
	}
	return nil
}

// DeleteSessionsByToken removes every session holding token; used when the
// API rejects it.
func DeleteSessionsByToken(ctx context.Context, db bun.IDB, token string) (int64, error) {
	res, err := db.NewDelete().Model((*Session)(nil)).Where("token = ?", token).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("DeleteSessionsByToken: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func PurgeExpiredSessions(ctx context.Context, db bun.IDB, now time.Time) (int64, error) {
	res, err := db.NewDelete().Model((*Session)(nil)).Where("expires_at <= ?", now.UTC()).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("PurgeExpiredSessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
