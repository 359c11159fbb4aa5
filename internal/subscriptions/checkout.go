package subscriptions

import (
	"context"
	"strings"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/metrics"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/rs/zerolog"
)

// plannerLiveStatuses are the gateway statuses that grant planner pro.
var plannerLiveStatuses = []string{billing.StatusActive, billing.StatusTrialing, billing.StatusPastDue}

// Checkout starts hosted checkout sessions.
type Checkout struct {
	Records RecordStore
	Gateway billing.Gateway
	Catalog Catalog
	Logger  zerolog.Logger
}

// FeaturedRequest is the input of a featured-listing checkout. Exactly one of
// ProgramID and ProgramData identifies the listing.
type FeaturedRequest struct {
	AccountID      string
	ProgramID      *string
	ProgramData    *models.ProgramDraft
	PlanType       string
	ContactName    string
	ContactEmail   string
	ContactPhone   *string
	ProgramLogoURL *string
}

// Session is a created checkout session.
type Session struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	RecordID  string `json:"subscriptionId,omitempty"`
}

// StartFeatured records a pending subscription and opens a checkout session for it.
// The pending record always exists before the session does.
func (c *Checkout) StartFeatured(ctx context.Context, req FeaturedRequest) (*Session, error) {
	// 1. --- Validate ---
	name := strings.TrimSpace(req.ContactName)
	email := strings.TrimSpace(req.ContactEmail)
	if name == "" || email == "" {
		return nil, apperr.Validation("contact name and email are required")
	}
	if req.AccountID == "" {
		return nil, apperr.Authentication("authentication required")
	}
	if (req.ProgramID == nil || *req.ProgramID == "") && req.ProgramData == nil {
		return nil, apperr.Validation("programId or programData is required")
	}
	if req.ProgramData != nil && strings.TrimSpace(req.ProgramData.Name) == "" {
		return nil, apperr.Validation("programData.name is required")
	}
	plan, err := models.ParsePlanType(req.PlanType)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	// 2. --- Resolve price ---
	priceID, err := c.Catalog.FeaturedPrice(plan)
	if err != nil {
		return nil, err
	}

	// 3. --- Resolve customer (reuse the account's existing one) ---
	customerID, found, err := c.Records.FindCustomerIDForAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !found {
		customerID, err = c.Gateway.FindOrCreateCustomer(ctx, email, name)
		if err != nil {
			return nil, apperr.Gateway("checkout.customer", err)
		}
	}

	// 4. --- Persist the pending record ---
	programID := req.ProgramID
	if programID != nil && *programID == "" {
		programID = nil
	}
	rec, err := c.Records.Create(ctx, models.SubscriptionDraft{
		ProgramID:        programID,
		AccountID:        req.AccountID,
		StripeCustomerID: customerID,
		StripePriceID:    priceID,
		PlanType:         plan,
		ContactName:      name,
		ContactEmail:     email,
		ContactPhone:     req.ContactPhone,
		ProgramLogoURL:   req.ProgramLogoURL,
		ProgramData:      req.ProgramData,
	})
	if err != nil {
		return nil, err
	}

	// 5. --- Open the session ---
	var trialDays int64
	if plan == models.PlanTrial {
		trialDays = c.Catalog.TrialDays
	}
	sess, err := c.openFeaturedSession(ctx, rec, priceID, trialDays)
	if err != nil {
		// The pending record stays behind; it is deletable by its owner.
		return nil, err
	}

	c.Logger.Info().
		Str("subscription_id", rec.ID).
		Str("plan", string(plan)).
		Str("session_id", sess.ID).
		Msg("featured checkout started")
	return &Session{SessionID: sess.ID, URL: sess.URL, RecordID: rec.ID}, nil
}

func (c *Checkout) openFeaturedSession(ctx context.Context, rec *models.SubscriptionRecord, priceID string, trialDays int64) (*billing.CheckoutSession, error) {
	sess, err := c.Gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID:      rec.StripeCustomerID,
		PriceID:         priceID,
		TrialPeriodDays: trialDays,
		SuccessURL:      c.Catalog.featuredSuccessURL(),
		CancelURL:       c.Catalog.featuredCancelURL(),
		Metadata: map[string]string{
			MetaRecordID:  rec.ID,
			MetaProduct:   ProductFeatured,
			MetaAccountID: rec.AccountID,
		},
	})
	if err != nil {
		return nil, apperr.Gateway("checkout.session", err)
	}
	metrics.CheckoutSessions.WithLabelValues(ProductFeatured, string(rec.PlanType)).Inc()
	return sess, nil
}

// StartPlanner opens a planner pro checkout. No local record is kept; the tier is
// always derived from the gateway.
func (c *Checkout) StartPlanner(ctx context.Context, actor Actor, rawInterval string) (*Session, error) {
	if actor.AccountID == "" || actor.Email == "" {
		return nil, apperr.Authentication("authentication required")
	}
	interval := models.PlannerInterval(rawInterval)
	if interval != models.PlannerMonthly && interval != models.PlannerYearly {
		return nil, apperr.Validation("unknown planner plan %q", rawInterval)
	}
	priceID, err := c.Catalog.PlannerPrice(interval)
	if err != nil {
		return nil, err
	}

	customerID, err := c.Gateway.FindOrCreateCustomer(ctx, actor.Email, actor.Name)
	if err != nil {
		return nil, apperr.Gateway("planner.customer", err)
	}
	subs, err := c.Gateway.ListSubscriptions(ctx, customerID, plannerLiveStatuses)
	if err != nil {
		return nil, apperr.Gateway("planner.list", err)
	}
	for _, s := range subs {
		if _, ok := c.Catalog.PlannerIntervalFor(s.PriceID); ok {
			return nil, apperr.InvalidState("account already has a planner subscription")
		}
	}

	sess, err := c.openPlannerSession(ctx, actor.AccountID, customerID, interval, priceID)
	if err != nil {
		return nil, err
	}
	return &Session{SessionID: sess.ID, URL: sess.URL}, nil
}

func (c *Checkout) openPlannerSession(ctx context.Context, accountID, customerID string, interval models.PlannerInterval, priceID string) (*billing.CheckoutSession, error) {
	sess, err := c.Gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: c.Catalog.plannerSuccessURL(),
		CancelURL:  c.Catalog.plannerCancelURL(),
		Metadata: map[string]string{
			MetaProduct:   ProductPlanner,
			MetaAccountID: accountID,
		},
	})
	if err != nil {
		return nil, apperr.Gateway("planner.session", err)
	}
	metrics.CheckoutSessions.WithLabelValues(ProductPlanner, string(interval)).Inc()
	c.Logger.Info().Str("account_id", accountID).Str("plan", string(interval)).Str("session_id", sess.ID).
		Msg("planner checkout started")
	return sess, nil
}
