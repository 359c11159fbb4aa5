package models

import (
	"encoding/json"
	"time"
)

// SubscriptionStatus is the local lifecycle status of a featured-listing subscription.
type SubscriptionStatus string

const (
	StatusPending  SubscriptionStatus = "pending"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusExpired  SubscriptionStatus = "expired"
)

// IsTerminal reports whether only an explicit reactivation may move a record out of s.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusExpired
}

// Deletable reports whether a record in status s may be removed by its owner.
func (s SubscriptionStatus) Deletable() bool {
	return s == StatusPending || s.IsTerminal()
}

// SubscriptionRecord is the model for the 'subscriptions' table.
// One row per featured-listing subscription instance.
type SubscriptionRecord struct {
	ID        string  `json:"id" db:"id"`
	ProgramID *string `json:"programId,omitempty" db:"program_id"`
	AccountID string  `json:"accountId" db:"account_id"`

	StripeCustomerID     string  `json:"stripeCustomerId" db:"stripe_customer_id"`
	StripeSubscriptionID *string `json:"stripeSubscriptionId,omitempty" db:"stripe_subscription_id"`
	StripePriceID        string  `json:"stripePriceId" db:"stripe_price_id"`

	PlanType PlanType           `json:"planType" db:"plan_type"`
	Status   SubscriptionStatus `json:"status" db:"status"`

	TrialStart         *time.Time `json:"trialStart,omitempty" db:"trial_start"`
	TrialEnd           *time.Time `json:"trialEnd,omitempty" db:"trial_end"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart,omitempty" db:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd,omitempty" db:"current_period_end"`
	CanceledAt         *time.Time `json:"canceledAt,omitempty" db:"canceled_at"`

	// Contact snapshot, kept even if the program row is later deleted.
	ContactName    string  `json:"contactName" db:"contact_name"`
	ContactEmail   string  `json:"contactEmail" db:"contact_email"`
	ContactPhone   *string `json:"contactPhone,omitempty" db:"contact_phone"`
	ProgramLogoURL *string `json:"programLogoUrl,omitempty" db:"program_logo_url"`

	// Draft listing used to materialize a program once payment succeeds.
	ProgramData *ProgramDraft `json:"programData,omitempty" db:"program_data"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// SubscriptionDraft holds the fields needed to create a pending record.
type SubscriptionDraft struct {
	ProgramID        *string
	AccountID        string
	StripeCustomerID string
	StripePriceID    string
	PlanType         PlanType
	ContactName      string
	ContactEmail     string
	ContactPhone     *string
	ProgramLogoURL   *string
	ProgramData      *ProgramDraft
}

// SubscriptionPatch is a partial update. Nil fields are left untouched; the Clear*
// flags explicitly set a nullable column back to NULL.
type SubscriptionPatch struct {
	ProgramID            *string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	StripePriceID        *string
	PlanType             *PlanType
	Status               *SubscriptionStatus
	TrialStart           *time.Time
	TrialEnd             *time.Time
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CanceledAt           *time.Time
	ClearCanceledAt      bool

	// ClearStripeSubscriptionID detaches the record from a lapsed gateway subscription.
	ClearStripeSubscriptionID bool
}

// IsEmpty reports whether the patch would change nothing.
func (p SubscriptionPatch) IsEmpty() bool {
	return p.ProgramID == nil && p.StripeCustomerID == nil && p.StripeSubscriptionID == nil &&
		p.StripePriceID == nil && p.PlanType == nil && p.Status == nil &&
		p.TrialStart == nil && p.TrialEnd == nil && p.CurrentPeriodStart == nil &&
		p.CurrentPeriodEnd == nil && p.CanceledAt == nil && !p.ClearCanceledAt &&
		!p.ClearStripeSubscriptionID
}

// EncodeProgramData serializes a draft for the program_data column.
func EncodeProgramData(d *ProgramDraft) (*string, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// DecodeProgramData parses the program_data column.
func DecodeProgramData(raw *string) (*ProgramDraft, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var d ProgramDraft
	if err := json.Unmarshal([]byte(*raw), &d); err != nil {
		return nil, err
	}
	return &d, nil
}
