// Package store holds the database/sql access for subscriptions, programs and
// the family planner's plan-limited rows.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/01moynul/familyhub-golang/internal/apperr"
)

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func optionalString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// ensureAffected turns a zero-row UPDATE into NotFound. MySQL reports rows changed,
// not rows matched, so a no-op update is confirmed with a lookup first.
func ensureAffected(ctx context.Context, db *sql.DB, res sql.Result, table, id, msg string) error {
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return nil
	}
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s", msg)
	}
	if err != nil {
		return apperr.Internal("lookup "+table, err)
	}
	return nil
}
