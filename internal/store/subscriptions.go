package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/google/uuid"
)

const subscriptionColumns = `id, program_id, account_id, stripe_customer_id, stripe_subscription_id,
	stripe_price_id, plan_type, status, trial_start, trial_end, current_period_start,
	current_period_end, canceled_at, contact_name, contact_email, contact_phone,
	program_logo_url, program_data, created_at, updated_at`

// SubscriptionStore persists SubscriptionRecord rows. It holds no business rules
// beyond the lookups callers need for uniqueness.
type SubscriptionStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewSubscriptionStore returns a store backed by db.
func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{DB: db, Now: now}
}

// Get returns the record with id, or a NotFound error.
func (s *SubscriptionStore) Get(ctx context.Context, id string) (*models.SubscriptionRecord, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id)
	rec, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("subscription not found")
	}
	if err != nil {
		return nil, apperr.Internal("get subscription", err)
	}
	return rec, nil
}

// FindByExternalSubscriptionID looks a record up by its Stripe subscription id.
// A missing row is not an error: found is false.
func (s *SubscriptionStore) FindByExternalSubscriptionID(ctx context.Context, stripeSubID string) (*models.SubscriptionRecord, bool, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE stripe_subscription_id = ?", stripeSubID)
	rec, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Internal("find subscription by stripe id", err)
	}
	return rec, true, nil
}

// FindCustomerIDForAccount returns the Stripe customer id stored on any earlier
// record for the account, so repeat checkouts reuse one customer.
func (s *SubscriptionStore) FindCustomerIDForAccount(ctx context.Context, accountID string) (string, bool, error) {
	var customerID string
	err := s.DB.QueryRowContext(ctx, `
		SELECT stripe_customer_id FROM subscriptions
		WHERE account_id = ? AND stripe_customer_id <> ''
		ORDER BY created_at DESC
		LIMIT 1`, accountID).Scan(&customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Internal("find customer for account", err)
	}
	return customerID, true, nil
}

// Create inserts a new record in pending status.
func (s *SubscriptionStore) Create(ctx context.Context, d models.SubscriptionDraft) (*models.SubscriptionRecord, error) {
	if d.ProgramID == nil && d.ProgramData == nil {
		return nil, apperr.Validation("either a program id or program data is required")
	}

	programData, err := models.EncodeProgramData(d.ProgramData)
	if err != nil {
		return nil, apperr.Validation("program data is not valid JSON")
	}

	ts := s.Now()
	rec := &models.SubscriptionRecord{
		ID:               uuid.NewString(),
		ProgramID:        d.ProgramID,
		AccountID:        d.AccountID,
		StripeCustomerID: d.StripeCustomerID,
		StripePriceID:    d.StripePriceID,
		PlanType:         d.PlanType,
		Status:           models.StatusPending,
		ContactName:      d.ContactName,
		ContactEmail:     d.ContactEmail,
		ContactPhone:     d.ContactPhone,
		ProgramLogoURL:   d.ProgramLogoURL,
		ProgramData:      d.ProgramData,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}

	query := `
		INSERT INTO subscriptions
		(id, program_id, account_id, stripe_customer_id, stripe_price_id, plan_type, status,
		 contact_name, contact_email, contact_phone, program_logo_url, program_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.DB.ExecContext(ctx, query,
		rec.ID, nullString(rec.ProgramID), rec.AccountID, rec.StripeCustomerID, rec.StripePriceID,
		string(rec.PlanType), string(rec.Status), rec.ContactName, rec.ContactEmail,
		nullString(rec.ContactPhone), nullString(rec.ProgramLogoURL), nullString(programData),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, apperr.Internal("create subscription", err)
	}
	return rec, nil
}

// Update applies a partial update. Fields left nil in the patch are not touched.
func (s *SubscriptionStore) Update(ctx context.Context, id string, p models.SubscriptionPatch) error {
	if p.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.ProgramID != nil {
		set("program_id", *p.ProgramID)
	}
	if p.StripeCustomerID != nil {
		set("stripe_customer_id", *p.StripeCustomerID)
	}
	switch {
	case p.StripeSubscriptionID != nil:
		set("stripe_subscription_id", *p.StripeSubscriptionID)
	case p.ClearStripeSubscriptionID:
		set("stripe_subscription_id", nil)
	}
	if p.StripePriceID != nil {
		set("stripe_price_id", *p.StripePriceID)
	}
	if p.PlanType != nil {
		set("plan_type", string(*p.PlanType))
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.TrialStart != nil {
		set("trial_start", *p.TrialStart)
	}
	if p.TrialEnd != nil {
		set("trial_end", *p.TrialEnd)
	}
	if p.CurrentPeriodStart != nil {
		set("current_period_start", *p.CurrentPeriodStart)
	}
	if p.CurrentPeriodEnd != nil {
		set("current_period_end", *p.CurrentPeriodEnd)
	}
	switch {
	case p.CanceledAt != nil:
		set("canceled_at", *p.CanceledAt)
	case p.ClearCanceledAt:
		set("canceled_at", nil)
	}
	set("updated_at", s.Now())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE subscriptions SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Internal("update subscription", err)
	}
	return ensureAffected(ctx, s.DB, res, "subscriptions", id, "subscription not found")
}

// Delete removes a record. Callers enforce which statuses may be deleted.
func (s *SubscriptionStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return apperr.Internal("delete subscription", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("subscription not found")
	}
	return nil
}

// ExpirePending moves pending records untouched since before to expired and
// returns how many changed. An abandoned checkout never produces a webhook.
func (s *SubscriptionStore) ExpirePending(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE subscriptions SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?",
		string(models.StatusExpired), s.Now(), string(models.StatusPending), before.UTC().Truncate(time.Second))
	if err != nil {
		return 0, apperr.Internal("expire pending subscriptions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Internal("expire pending subscriptions", err)
	}
	return n, nil
}

// ListByAccount returns the account's records, newest first.
func (s *SubscriptionStore) ListByAccount(ctx context.Context, accountID string) ([]*models.SubscriptionRecord, error) {
	return s.list(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE account_id = ? ORDER BY created_at DESC", accountID)
}

// ListAll returns every record for the admin console, optionally filtered by status.
func (s *SubscriptionStore) ListAll(ctx context.Context, status string, limit int) ([]*models.SubscriptionRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if status == "" {
		return s.list(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions ORDER BY created_at DESC LIMIT ?", limit)
	}
	return s.list(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE status = ? ORDER BY created_at DESC LIMIT ?", status, limit)
}

func (s *SubscriptionStore) list(ctx context.Context, query string, args ...any) ([]*models.SubscriptionRecord, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("list subscriptions", err)
	}
	defer rows.Close()

	var out []*models.SubscriptionRecord
	for rows.Next() {
		rec, err := scanSubscription(rows)
		if err != nil {
			return nil, apperr.Internal("scan subscription", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list subscriptions", err)
	}
	return out, nil
}

func scanSubscription(row rowScanner) (*models.SubscriptionRecord, error) {
	var (
		rec                                           models.SubscriptionRecord
		programID, stripeSubID, phone, logo, progData sql.NullString
		planType, status                              string
		trialStart, trialEnd, periodStart, periodEnd  sql.NullTime
		canceledAt                                    sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &programID, &rec.AccountID, &rec.StripeCustomerID, &stripeSubID,
		&rec.StripePriceID, &planType, &status, &trialStart, &trialEnd, &periodStart,
		&periodEnd, &canceledAt, &rec.ContactName, &rec.ContactEmail, &phone,
		&logo, &progData, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ProgramID = stringPtr(programID)
	rec.StripeSubscriptionID = stringPtr(stripeSubID)
	rec.PlanType = models.PlanType(planType)
	rec.Status = models.SubscriptionStatus(status)
	rec.TrialStart = timePtr(trialStart)
	rec.TrialEnd = timePtr(trialEnd)
	rec.CurrentPeriodStart = timePtr(periodStart)
	rec.CurrentPeriodEnd = timePtr(periodEnd)
	rec.CanceledAt = timePtr(canceledAt)
	rec.ContactPhone = stringPtr(phone)
	rec.ProgramLogoURL = stringPtr(logo)

	if rec.ProgramData, err = models.DecodeProgramData(stringPtr(progData)); err != nil {
		return nil, fmt.Errorf("decode program_data for %s: %w", rec.ID, err)
	}
	return &rec, nil
}
