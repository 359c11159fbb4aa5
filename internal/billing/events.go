package billing

import (
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
)

// EventType is a webhook event type.
type EventType string

const (
	EventCheckoutCompleted     EventType = "checkout.session.completed"
	EventSubscriptionUpdated   EventType = "customer.subscription.updated"
	EventSubscriptionDeleted   EventType = "customer.subscription.deleted"
	EventSubscriptionTrialEnds EventType = "customer.subscription.trial_will_end"
	EventInvoiceUpcoming       EventType = "invoice.upcoming"
	EventInvoicePaymentFailed  EventType = "invoice.payment_failed"
)

// Event is a verified webhook event with its object decoded. Exactly one of
// Session, Subscription or Invoice is set for the known types; none for others.
type Event struct {
	ID           string
	Type         EventType
	Created      time.Time
	Session      *CheckoutSession
	Subscription *Subscription
	Invoice      *Invoice
}

// ParseEnvelope decodes a raw webhook body ({id, type, created, data.object}).
// It does not verify signatures.
func ParseEnvelope(payload []byte) (*Event, error) {
	var env struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("billing: decode event envelope: %w", err)
	}
	return ParseEvent(env.ID, env.Type, env.Created, env.Data.Object)
}

// ParseEvent decodes the data object of a known event type.
func ParseEvent(id, eventType string, created int64, object json.RawMessage) (*Event, error) {
	evt := &Event{ID: id, Type: EventType(eventType), Created: time.Unix(created, 0).UTC()}

	var err error
	switch evt.Type {
	case EventCheckoutCompleted:
		evt.Session, err = decodeSession(object)
	case EventSubscriptionUpdated, EventSubscriptionDeleted, EventSubscriptionTrialEnds:
		evt.Subscription, err = decodeSubscription(object)
	case EventInvoiceUpcoming, EventInvoicePaymentFailed:
		evt.Invoice, err = decodeInvoice(object)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: decode %s event %s: %w", eventType, id, err)
	}
	return evt, nil
}

func decodeSession(raw json.RawMessage) (*CheckoutSession, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, err
	}
	s := &CheckoutSession{ID: cs.ID, URL: cs.URL, Metadata: cs.Metadata}
	if cs.Customer != nil {
		s.CustomerID = cs.Customer.ID
	}
	if cs.Subscription != nil {
		s.SubscriptionID = cs.Subscription.ID
	}
	return s, nil
}

// legacyPeriod holds the top-level billing period that endpoints pinned to
// older API versions still send. Newer versions report it on the item only.
type legacyPeriod struct {
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
}

func decodeSubscription(raw json.RawMessage) (*Subscription, error) {
	var ss stripe.Subscription
	if err := json.Unmarshal(raw, &ss); err != nil {
		return nil, err
	}
	sub := fromStripeSubscription(&ss)

	var legacy legacyPeriod
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}
	if sub.CurrentPeriodStart == nil {
		sub.CurrentPeriodStart = unixPtr(legacy.CurrentPeriodStart)
	}
	if sub.CurrentPeriodEnd == nil {
		sub.CurrentPeriodEnd = unixPtr(legacy.CurrentPeriodEnd)
	}
	return sub, nil
}

func decodeInvoice(raw json.RawMessage) (*Invoice, error) {
	var in stripe.Invoice
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	inv := &Invoice{
		ID:                 in.ID,
		AmountDue:          in.AmountDue,
		Currency:           string(in.Currency),
		NextPaymentAttempt: unixPtr(in.NextPaymentAttempt),
	}
	if in.Customer != nil {
		inv.CustomerID = in.Customer.ID
	}
	if in.Parent != nil && in.Parent.SubscriptionDetails != nil && in.Parent.SubscriptionDetails.Subscription != nil {
		inv.SubscriptionID = in.Parent.SubscriptionDetails.Subscription.ID
	}

	// Older API versions put the subscription at the top level.
	if inv.SubscriptionID == "" {
		var legacy struct {
			Subscription *stripe.Subscription `json:"subscription"`
		}
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, err
		}
		if legacy.Subscription != nil {
			inv.SubscriptionID = legacy.Subscription.ID
		}
	}
	return inv, nil
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
