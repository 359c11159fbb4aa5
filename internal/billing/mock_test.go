package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockFindOrCreateCustomerReusesEmail(t *testing.T) {
	ctx := context.Background()
	m := NewMockGateway()

	a, err := m.FindOrCreateCustomer(ctx, "jane@x.com", "Jane")
	require.NoError(t, err)
	b, err := m.FindOrCreateCustomer(ctx, "JANE@x.com", "Jane")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, m.CustomersMade)
}

func TestMockListSubscriptionsFiltersStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMockGateway()
	m.AddSubscription(Subscription{ID: "sub_1", CustomerID: "cus_1", Status: StatusActive})
	m.AddSubscription(Subscription{ID: "sub_2", CustomerID: "cus_1", Status: StatusCanceled})
	m.AddSubscription(Subscription{ID: "sub_3", CustomerID: "cus_2", Status: StatusActive})

	subs, err := m.ListSubscriptions(ctx, "cus_1", []string{StatusActive, StatusTrialing})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub_1", subs[0].ID)

	all, err := m.ListSubscriptions(ctx, "cus_1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMockCancelAtPeriodEnd(t *testing.T) {
	ctx := context.Background()
	m := NewMockGateway()
	m.AddSubscription(Subscription{ID: "sub_1", CustomerID: "cus_1", Status: StatusActive})

	s, err := m.SetCancelAtPeriodEnd(ctx, "sub_1", true)
	require.NoError(t, err)
	assert.True(t, s.CancelAtPeriodEnd)
	assert.NotNil(t, s.CanceledAt)

	s, err = m.SetCancelAtPeriodEnd(ctx, "sub_1", false)
	require.NoError(t, err)
	assert.False(t, s.CancelAtPeriodEnd)
	assert.Nil(t, s.CanceledAt)
	assert.Equal(t, []CancelCall{{"sub_1", true}, {"sub_1", false}}, m.CancelCalls)
}

func TestMockInjectedErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMockGateway()
	boom := errors.New("gateway down")
	m.CreateCheckoutSessionErr = boom
	m.VerifyErr = boom

	_, err := m.CreateCheckoutSession(ctx, CheckoutParams{})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, m.CheckoutCalls)

	_, err = m.VerifyWebhookSignature([]byte(`{}`), "", "")
	assert.ErrorIs(t, err, boom)
}
