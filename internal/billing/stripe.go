package billing

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway implements Gateway using the Stripe API.
type StripeGateway struct {
	apiKey string
}

// NewStripeGateway configures the Stripe client with apiKey.
func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{apiKey: apiKey}
}

// FindOrCreateCustomer returns the first customer with email, creating one if none exists.
func (g *StripeGateway) FindOrCreateCustomer(ctx context.Context, email, name string) (string, error) {
	id, found, err := g.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.Context = ctx
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create stripe customer: %w", err)
	}
	return c.ID, nil
}

// FindCustomerByEmail looks up a customer by exact email.
func (g *StripeGateway) FindCustomerByEmail(ctx context.Context, email string) (string, bool, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)
	params.Context = ctx

	it := customer.List(params)
	if it.Next() {
		return it.Customer().ID, true, nil
	}
	if err := it.Err(); err != nil {
		return "", false, fmt.Errorf("billing: list stripe customers: %w", err)
	}
	return "", false, nil
}

// RetrieveCustomer fetches a customer.
func (g *StripeGateway) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := customer.Get(customerID, params)
	if err != nil {
		return nil, wrapStripe("get stripe customer", err)
	}
	return &Customer{ID: c.ID, Email: c.Email, Name: c.Name}, nil
}

// CreateCheckoutSession opens a subscription-mode checkout session.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		},
	}
	if p.TrialPeriodDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(p.TrialPeriodDays)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("billing: create stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL, CustomerID: p.CustomerID, Metadata: s.Metadata}, nil
}

// RetrieveSubscription fetches a subscription.
func (g *StripeGateway) RetrieveSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, wrapStripe("get stripe subscription", err)
	}
	return fromStripeSubscription(s), nil
}

// UpdateSubscriptionItem swaps the subscription's price.
func (g *StripeGateway) UpdateSubscriptionItem(ctx context.Context, subscriptionID, newPriceID string, mode ProrationMode) (*Subscription, error) {
	current, err := g.RetrieveSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if current.ItemID == "" {
		return nil, fmt.Errorf("billing: stripe subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(current.ItemID), Price: stripe.String(newPriceID)},
		},
		ProrationBehavior: stripe.String(string(mode)),
	}
	params.Context = ctx
	s, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return nil, wrapStripe("update stripe subscription", err)
	}
	return fromStripeSubscription(s), nil
}

// SetCancelAtPeriodEnd schedules or clears cancellation at the end of the period.
func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*Subscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancel)}
	params.Context = ctx
	s, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return nil, wrapStripe("update stripe subscription", err)
	}
	return fromStripeSubscription(s), nil
}

// ListSubscriptions lists the customer's subscriptions whose status is in statuses.
// An empty statuses slice returns every subscription.
func (g *StripeGateway) ListSubscriptions(ctx context.Context, customerID string, statuses []string) ([]*Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	var out []*Subscription
	it := subscription.List(params)
	for it.Next() {
		s := it.Subscription()
		if len(want) == 0 || want[string(s.Status)] {
			out = append(out, fromStripeSubscription(s))
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("billing: list stripe subscriptions: %w", err)
	}
	return out, nil
}

// CreateBillingPortalSession returns a customer portal URL.
func (g *StripeGateway) CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create stripe portal session: %w", err)
	}
	return s.URL, nil
}

// VerifyWebhookSignature validates the Stripe-Signature header and decodes the event.
func (g *StripeGateway) VerifyWebhookSignature(payload []byte, signatureHeader, secret string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("billing: webhook signature verification failed: %w", err)
	}
	var raw []byte
	if evt.Data != nil {
		raw = evt.Data.Raw
	}
	return ParseEvent(evt.ID, string(evt.Type), evt.Created, raw)
}

func fromStripeSubscription(s *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		TrialStart:        unixPtr(s.TrialStart),
		TrialEnd:          unixPtr(s.TrialEnd),
		CanceledAt:        unixPtr(s.CanceledAt),
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		out.ItemID = item.ID
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
		out.CurrentPeriodStart = unixPtr(item.CurrentPeriodStart)
		out.CurrentPeriodEnd = unixPtr(item.CurrentPeriodEnd)
	}
	return out
}

// wrapStripe tags resource_missing responses with ErrNotFound.
func wrapStripe(op string, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) && (serr.Code == stripe.ErrorCodeResourceMissing || serr.HTTPStatusCode == 404) {
		return fmt.Errorf("billing: %s: %w: %w", op, ErrNotFound, err)
	}
	return fmt.Errorf("billing: %s: %w", op, err)
}
