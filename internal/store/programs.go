package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ProgramStore persists directory listings.
type ProgramStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewProgramStore returns a store backed by db.
func NewProgramStore(db *sql.DB) *ProgramStore {
	return &ProgramStore{DB: db, Now: now}
}

// listingSpace namespaces ids of listings materialized from a subscription record.
var listingSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:familyhub:listing"))

// MaterializedID is the id of the listing created for a subscription record.
func MaterializedID(recordID string) string {
	return uuid.NewSHA1(listingSpace, []byte(recordID)).String()
}

// Create inserts a new listing built from a draft.
func (s *ProgramStore) Create(ctx context.Context, d models.ProgramDraft) (*models.Program, error) {
	return s.insert(ctx, uuid.NewString(), d)
}

// Materialize creates the listing for a subscription record once a checkout
// completes. The id is derived from recordID, so a retried call after a partial
// failure returns the row the first call wrote instead of inserting another.
func (s *ProgramStore) Materialize(ctx context.Context, recordID string, d models.ProgramDraft) (*models.Program, error) {
	id := MaterializedID(recordID)
	p, err := s.Get(ctx, id)
	if err == nil {
		return p, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	return s.insert(ctx, id, d)
}

func (s *ProgramStore) insert(ctx context.Context, id string, d models.ProgramDraft) (*models.Program, error) {
	if d.Name == "" {
		return nil, apperr.Validation("program name is required")
	}

	ts := s.Now()
	p := &models.Program{
		ID:        id,
		Name:      d.Name,
		Slug:      slug.Make(d.Name),
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	query := `
		INSERT INTO programs
		(id, name, slug, description, website, address, city, phone, email, logo_url, is_featured, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := []any{
		p.ID, p.Name, p.Slug,
		optionalString(d.Description), optionalString(d.Website), optionalString(d.Address),
		optionalString(d.City), optionalString(d.Phone), optionalString(d.Email),
		optionalString(d.LogoURL), false, p.CreatedAt, p.UpdatedAt,
	}
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return nil, apperr.Internal("create program", err)
	}

	p.Description = stringPtr(optionalString(d.Description))
	p.Website = stringPtr(optionalString(d.Website))
	p.Address = stringPtr(optionalString(d.Address))
	p.City = stringPtr(optionalString(d.City))
	p.Phone = stringPtr(optionalString(d.Phone))
	p.Email = stringPtr(optionalString(d.Email))
	p.LogoURL = stringPtr(optionalString(d.LogoURL))
	return p, nil
}

// Get returns the listing with id, or a NotFound error.
func (s *ProgramStore) Get(ctx context.Context, id string) (*models.Program, error) {
	var (
		p                                                models.Program
		desc, website, address, city, phone, email, logo sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, slug, description, website, address, city, phone, email, logo_url, is_featured, created_at, updated_at
		FROM programs WHERE id = ?`, id).Scan(
		&p.ID, &p.Name, &p.Slug, &desc, &website, &address, &city, &phone, &email, &logo,
		&p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("program not found")
	}
	if err != nil {
		return nil, apperr.Internal("get program", err)
	}

	p.Description = stringPtr(desc)
	p.Website = stringPtr(website)
	p.Address = stringPtr(address)
	p.City = stringPtr(city)
	p.Phone = stringPtr(phone)
	p.Email = stringPtr(email)
	p.LogoURL = stringPtr(logo)
	return &p, nil
}

// SetFeatured flips the denormalized featured flag. A program that no longer exists
// is reported as NotFound so callers can treat orphaned subscriptions gracefully.
func (s *ProgramStore) SetFeatured(ctx context.Context, id string, featured bool) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE programs SET is_featured = ?, updated_at = ? WHERE id = ?", featured, s.Now(), id)
	if err != nil {
		return apperr.Internal("set program featured", err)
	}
	return ensureAffected(ctx, s.DB, res, "programs", id, "program not found")
}

// Delete removes a listing. Subscription rows pointing at it are left alone.
func (s *ProgramStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM programs WHERE id = ?", id)
	if err != nil {
		return apperr.Internal("delete program", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("program not found")
	}
	return nil
}
