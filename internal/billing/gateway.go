// Package billing wraps the payment processor behind a small synchronous interface.
package billing

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is wrapped by gateway errors for missing customers or subscriptions.
var ErrNotFound = errors.New("billing: object not found")

// Gateway subscription statuses as reported by the processor.
const (
	StatusActive            = "active"
	StatusTrialing          = "trialing"
	StatusPastDue           = "past_due"
	StatusCanceled          = "canceled"
	StatusUnpaid            = "unpaid"
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusPaused            = "paused"
)

// ProrationMode controls how a price change is billed.
type ProrationMode string

const (
	// ProrateAlwaysInvoice invoices the prorated difference immediately.
	ProrateAlwaysInvoice ProrationMode = "always_invoice"
	// ProrateNone applies the new price from the next billing cycle.
	ProrateNone ProrationMode = "none"
)

// Customer is a billing customer.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// Subscription is the processor's authoritative view of a subscription.
// Only the first subscription item is tracked; every plan here has one price.
type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	ItemID             string
	PriceID            string
	CancelAtPeriodEnd  bool
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CanceledAt         *time.Time
	Metadata           map[string]string
}

// CheckoutParams describes a subscription-mode checkout session.
type CheckoutParams struct {
	CustomerID      string
	PriceID         string
	TrialPeriodDays int64
	SuccessURL      string
	CancelURL       string
	Metadata        map[string]string
}

// CheckoutSession is a created or completed checkout session.
type CheckoutSession struct {
	ID             string
	URL            string
	CustomerID     string
	SubscriptionID string
	Metadata       map[string]string
}

// Invoice carries the invoice fields the reconciler reads.
type Invoice struct {
	ID                 string
	CustomerID         string
	SubscriptionID     string
	AmountDue          int64
	Currency           string
	NextPaymentAttempt *time.Time
}

// Gateway is the set of processor operations the lifecycle engine uses.
// Every method can fail with a network or processor error.
type Gateway interface {
	FindOrCreateCustomer(ctx context.Context, email, name string) (string, error)
	// FindCustomerByEmail returns found=false when no customer has the email.
	FindCustomerByEmail(ctx context.Context, email string) (id string, found bool, err error)
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	UpdateSubscriptionItem(ctx context.Context, subscriptionID, newPriceID string, mode ProrationMode) (*Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string, statuses []string) ([]*Subscription, error)
	CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	VerifyWebhookSignature(payload []byte, signatureHeader, secret string) (*Event, error)
}
