package billing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockGateway is an in-memory Gateway for tests. It records calls and lets tests
// inject failures through the ...Err fields.
type MockGateway struct {
	mu sync.Mutex

	Customers     map[string]*Customer     // customerID -> customer
	Subscriptions map[string]*Subscription // subscriptionID -> subscription

	CheckoutCalls []CheckoutParams
	UpdateCalls   []UpdateCall
	CancelCalls   []CancelCall
	PortalCalls   []string // customer ids
	CustomersMade int

	FindOrCreateCustomerErr   error
	FindCustomerByEmailErr    error
	RetrieveCustomerErr       error
	CreateCheckoutSessionErr  error
	RetrieveSubscriptionErr   error
	UpdateSubscriptionItemErr error
	SetCancelAtPeriodEndErr   error
	ListSubscriptionsErr      error
	PortalErr                 error
	VerifyErr                 error

	Now func() time.Time

	nextCustomer int
	nextSession  int
}

// UpdateCall records one UpdateSubscriptionItem call.
type UpdateCall struct {
	SubscriptionID string
	PriceID        string
	Mode           ProrationMode
}

// CancelCall records one SetCancelAtPeriodEnd call.
type CancelCall struct {
	SubscriptionID string
	Cancel         bool
}

// NewMockGateway returns an empty MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Customers:     make(map[string]*Customer),
		Subscriptions: make(map[string]*Subscription),
		Now:           func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// AddCustomer registers a customer and returns it.
func (m *MockGateway) AddCustomer(id, email string) *Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &Customer{ID: id, Email: email}
	m.Customers[id] = c
	return c
}

// AddSubscription registers a subscription. The stored value is a copy.
func (m *MockGateway) AddSubscription(s Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ItemID == "" {
		s.ItemID = "si_" + strings.TrimPrefix(s.ID, "sub_")
	}
	m.Subscriptions[s.ID] = &s
}

// SetStatus changes a stored subscription's status.
func (m *MockGateway) SetStatus(subscriptionID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Subscriptions[subscriptionID]; ok {
		s.Status = status
	}
}

func (m *MockGateway) FindOrCreateCustomer(_ context.Context, email, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindOrCreateCustomerErr != nil {
		return "", m.FindOrCreateCustomerErr
	}
	if id, ok := m.findByEmail(email); ok {
		return id, nil
	}
	m.nextCustomer++
	m.CustomersMade++
	id := fmt.Sprintf("cus_mock_%d", m.nextCustomer)
	m.Customers[id] = &Customer{ID: id, Email: email, Name: name}
	return id, nil
}

func (m *MockGateway) FindCustomerByEmail(_ context.Context, email string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindCustomerByEmailErr != nil {
		return "", false, m.FindCustomerByEmailErr
	}
	id, ok := m.findByEmail(email)
	return id, ok, nil
}

func (m *MockGateway) findByEmail(email string) (string, bool) {
	for id, c := range m.Customers {
		if strings.EqualFold(c.Email, email) {
			return id, true
		}
	}
	return "", false
}

func (m *MockGateway) RetrieveCustomer(_ context.Context, customerID string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RetrieveCustomerErr != nil {
		return nil, m.RetrieveCustomerErr
	}
	c, ok := m.Customers[customerID]
	if !ok {
		return nil, fmt.Errorf("%w: customer %s", ErrNotFound, customerID)
	}
	cp := *c
	return &cp, nil
}

func (m *MockGateway) CreateCheckoutSession(_ context.Context, p CheckoutParams) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateCheckoutSessionErr != nil {
		return nil, m.CreateCheckoutSessionErr
	}
	m.CheckoutCalls = append(m.CheckoutCalls, p)
	m.nextSession++
	id := fmt.Sprintf("cs_mock_%d", m.nextSession)
	return &CheckoutSession{
		ID:         id,
		URL:        "https://checkout.mock/" + id,
		CustomerID: p.CustomerID,
		Metadata:   p.Metadata,
	}, nil
}

func (m *MockGateway) RetrieveSubscription(_ context.Context, subscriptionID string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RetrieveSubscriptionErr != nil {
		return nil, m.RetrieveSubscriptionErr
	}
	return m.copyOf(subscriptionID)
}

func (m *MockGateway) UpdateSubscriptionItem(_ context.Context, subscriptionID, newPriceID string, mode ProrationMode) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateSubscriptionItemErr != nil {
		return nil, m.UpdateSubscriptionItemErr
	}
	s, ok := m.Subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("%w: subscription %s", ErrNotFound, subscriptionID)
	}
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{SubscriptionID: subscriptionID, PriceID: newPriceID, Mode: mode})
	s.PriceID = newPriceID
	return m.copyOf(subscriptionID)
}

func (m *MockGateway) SetCancelAtPeriodEnd(_ context.Context, subscriptionID string, cancel bool) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetCancelAtPeriodEndErr != nil {
		return nil, m.SetCancelAtPeriodEndErr
	}
	s, ok := m.Subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("%w: subscription %s", ErrNotFound, subscriptionID)
	}
	m.CancelCalls = append(m.CancelCalls, CancelCall{SubscriptionID: subscriptionID, Cancel: cancel})
	s.CancelAtPeriodEnd = cancel
	if cancel {
		t := m.Now()
		s.CanceledAt = &t
	} else {
		s.CanceledAt = nil
	}
	return m.copyOf(subscriptionID)
}

func (m *MockGateway) ListSubscriptions(_ context.Context, customerID string, statuses []string) ([]*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListSubscriptionsErr != nil {
		return nil, m.ListSubscriptionsErr
	}
	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []*Subscription
	for id, s := range m.Subscriptions {
		if s.CustomerID != customerID || (len(want) > 0 && !want[s.Status]) {
			continue
		}
		cp, _ := m.copyOf(id)
		out = append(out, cp)
	}
	return out, nil
}

func (m *MockGateway) CreateBillingPortalSession(_ context.Context, customerID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PortalErr != nil {
		return "", m.PortalErr
	}
	m.PortalCalls = append(m.PortalCalls, customerID)
	return "https://billing.mock/portal/" + customerID, nil
}

// VerifyWebhookSignature skips signature checks and decodes payload as an event
// envelope, unless VerifyErr is set.
func (m *MockGateway) VerifyWebhookSignature(payload []byte, _, _ string) (*Event, error) {
	m.mu.Lock()
	verr := m.VerifyErr
	m.mu.Unlock()
	if verr != nil {
		return nil, verr
	}
	return ParseEnvelope(payload)
}

func (m *MockGateway) copyOf(subscriptionID string) (*Subscription, error) {
	s, ok := m.Subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("%w: subscription %s", ErrNotFound, subscriptionID)
	}
	cp := *s
	return &cp, nil
}
