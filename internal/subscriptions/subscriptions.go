// Package subscriptions implements the featured-listing and planner subscription
// lifecycle: starting checkouts, reconciling billing webhooks and changing plans.
package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/models"
)

// Checkout session metadata keys.
const (
	MetaRecordID  = "subscription_record_id"
	MetaProduct   = "product"
	MetaAccountID = "account_id"

	ProductFeatured = "featured_listing"
	ProductPlanner  = "planner"
)

// RecordStore is the subset of the subscription store the lifecycle needs.
type RecordStore interface {
	Get(ctx context.Context, id string) (*models.SubscriptionRecord, error)
	FindByExternalSubscriptionID(ctx context.Context, stripeSubID string) (*models.SubscriptionRecord, bool, error)
	FindCustomerIDForAccount(ctx context.Context, accountID string) (string, bool, error)
	Create(ctx context.Context, d models.SubscriptionDraft) (*models.SubscriptionRecord, error)
	Update(ctx context.Context, id string, p models.SubscriptionPatch) error
	Delete(ctx context.Context, id string) error
}

// ProgramStore is the subset of the program store the reconciler needs.
type ProgramStore interface {
	Get(ctx context.Context, id string) (*models.Program, error)
	Materialize(ctx context.Context, recordID string, d models.ProgramDraft) (*models.Program, error)
	SetFeatured(ctx context.Context, id string, featured bool) error
}

// Notifier sends the best-effort lifecycle emails.
type Notifier interface {
	FeaturedWelcome(ctx context.Context, rec *models.SubscriptionRecord, listingName string) error
	TrialEnding(ctx context.Context, rec *models.SubscriptionRecord, trialEnd *time.Time) error
	UpcomingCharge(ctx context.Context, rec *models.SubscriptionRecord, amountDue int64, currency string, chargeAt *time.Time) error
}

// Actor is the authenticated account performing an operation.
type Actor struct {
	AccountID string
	Email     string
	Name      string
}

// Result is returned by every plan-change style operation.
type Result struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Message     string `json:"message"`
}

// DeriveStatus maps a gateway subscription status onto the local lifecycle.
func DeriveStatus(gatewayStatus string) models.SubscriptionStatus {
	switch gatewayStatus {
	case billing.StatusTrialing:
		return models.StatusTrialing
	case billing.StatusActive:
		return models.StatusActive
	case billing.StatusPastDue:
		return models.StatusPastDue
	case billing.StatusCanceled, billing.StatusUnpaid:
		return models.StatusCanceled
	}
	return models.StatusPending
}

func isLive(s models.SubscriptionStatus) bool {
	return s == models.StatusActive || s == models.StatusTrialing
}

func gatewayIsLive(status string) bool {
	return status == billing.StatusActive || status == billing.StatusTrialing
}

// gatewayPatch copies the gateway-derived temporal fields into a patch.
func gatewayPatch(sub *billing.Subscription) models.SubscriptionPatch {
	p := models.SubscriptionPatch{
		TrialStart:         sub.TrialStart,
		TrialEnd:           sub.TrialEnd,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
	}
	if sub.CanceledAt != nil {
		p.CanceledAt = sub.CanceledAt
	} else {
		p.ClearCanceledAt = true
	}
	return p
}

// gatewayErr maps a gateway failure, turning missing objects into NotFound.
func gatewayErr(op string, err error) error {
	if errors.Is(err, billing.ErrNotFound) {
		return apperr.NotFound("subscription not found at the billing provider")
	}
	return apperr.Gateway(op, err)
}

func isNotFound(err error) bool {
	return apperr.KindOf(err) == apperr.KindNotFound
}

func isNotFoundAtGateway(err error) bool {
	return errors.Is(err, billing.ErrNotFound)
}
