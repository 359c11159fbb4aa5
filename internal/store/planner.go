package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/google/uuid"
)

// PlannerStore persists the family planner's plan-limited rows.
type PlannerStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewPlannerStore returns a store backed by db.
func NewPlannerStore(db *sql.DB) *PlannerStore {
	return &PlannerStore{DB: db, Now: now}
}

// CountForAccount counts the account's rows of one resource type.
func (s *PlannerStore) CountForAccount(ctx context.Context, resource models.PlannerResource, accountID string) (int, error) {
	table, err := plannerTable(resource)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE account_id = ?", accountID).Scan(&n); err != nil {
		return 0, apperr.Internal("count "+table, err)
	}
	return n, nil
}

// AddSavedProgram saves a program to the account's planner.
func (s *PlannerStore) AddSavedProgram(ctx context.Context, accountID, programID string, notes *string) (*models.SavedProgram, error) {
	sp := &models.SavedProgram{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ProgramID: programID,
		Notes:     notes,
		CreatedAt: s.Now(),
	}
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO saved_programs (id, account_id, program_id, notes, created_at) VALUES (?, ?, ?, ?, ?)",
		sp.ID, sp.AccountID, sp.ProgramID, nullString(sp.Notes), sp.CreatedAt)
	if err != nil {
		return nil, apperr.Internal("add saved program", err)
	}
	return sp, nil
}

// ListSavedPrograms returns the account's saved programs, newest first.
func (s *PlannerStore) ListSavedPrograms(ctx context.Context, accountID string) ([]*models.SavedProgram, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, account_id, program_id, notes, created_at FROM saved_programs WHERE account_id = ? ORDER BY created_at DESC",
		accountID)
	if err != nil {
		return nil, apperr.Internal("list saved programs", err)
	}
	defer rows.Close()

	var out []*models.SavedProgram
	for rows.Next() {
		var sp models.SavedProgram
		var notes sql.NullString
		if err := rows.Scan(&sp.ID, &sp.AccountID, &sp.ProgramID, &notes, &sp.CreatedAt); err != nil {
			return nil, apperr.Internal("scan saved program", err)
		}
		sp.Notes = stringPtr(notes)
		out = append(out, &sp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list saved programs", err)
	}
	return out, nil
}

// DeleteSavedProgram removes one of the account's saved programs.
func (s *PlannerStore) DeleteSavedProgram(ctx context.Context, accountID, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM saved_programs WHERE id = ? AND account_id = ?", id, accountID)
	if err != nil {
		return apperr.Internal("delete saved program", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("saved program not found")
	}
	return nil
}

// AddChild adds a child profile.
func (s *PlannerStore) AddChild(ctx context.Context, accountID, name string, birthYear *int) (*models.Child, error) {
	ch := &models.Child{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Name:      name,
		BirthYear: birthYear,
		CreatedAt: s.Now(),
	}
	var by sql.NullInt64
	if birthYear != nil {
		by = sql.NullInt64{Int64: int64(*birthYear), Valid: true}
	}
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO children (id, account_id, name, birth_year, created_at) VALUES (?, ?, ?, ?, ?)",
		ch.ID, ch.AccountID, ch.Name, by, ch.CreatedAt)
	if err != nil {
		return nil, apperr.Internal("add child", err)
	}
	return ch, nil
}

// ListChildren returns the account's child profiles.
func (s *PlannerStore) ListChildren(ctx context.Context, accountID string) ([]*models.Child, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, account_id, name, birth_year, created_at FROM children WHERE account_id = ? ORDER BY created_at",
		accountID)
	if err != nil {
		return nil, apperr.Internal("list children", err)
	}
	defer rows.Close()

	var out []*models.Child
	for rows.Next() {
		var ch models.Child
		var by sql.NullInt64
		if err := rows.Scan(&ch.ID, &ch.AccountID, &ch.Name, &by, &ch.CreatedAt); err != nil {
			return nil, apperr.Internal("scan child", err)
		}
		if by.Valid {
			y := int(by.Int64)
			ch.BirthYear = &y
		}
		out = append(out, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list children", err)
	}
	return out, nil
}

// AddAdult adds an adult profile.
func (s *PlannerStore) AddAdult(ctx context.Context, accountID, name string, email *string) (*models.Adult, error) {
	a := &models.Adult{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Name:      name,
		Email:     email,
		CreatedAt: s.Now(),
	}
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO adults (id, account_id, name, email, created_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.AccountID, a.Name, nullString(a.Email), a.CreatedAt)
	if err != nil {
		return nil, apperr.Internal("add adult", err)
	}
	return a, nil
}

// ListAdults returns the account's adult profiles.
func (s *PlannerStore) ListAdults(ctx context.Context, accountID string) ([]*models.Adult, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, account_id, name, email, created_at FROM adults WHERE account_id = ? ORDER BY created_at",
		accountID)
	if err != nil {
		return nil, apperr.Internal("list adults", err)
	}
	defer rows.Close()

	var out []*models.Adult
	for rows.Next() {
		var a models.Adult
		var email sql.NullString
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Name, &email, &a.CreatedAt); err != nil {
			return nil, apperr.Internal("scan adult", err)
		}
		a.Email = stringPtr(email)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list adults", err)
	}
	return out, nil
}

func plannerTable(r models.PlannerResource) (string, error) {
	switch r {
	case models.ResourceSavedPrograms, models.ResourceChildren, models.ResourceAdults:
		return string(r), nil
	}
	return "", apperr.Internal("planner table", fmt.Errorf("unknown planner resource %q", r))
}
