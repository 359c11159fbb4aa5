package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const subscriptionUpdatedPayload = `{
  "id": "evt_1",
  "type": "customer.subscription.updated",
  "created": 1760400000,
  "data": {"object": {
    "id": "sub_1",
    "object": "subscription",
    "customer": "cus_1",
    "status": "active",
    "cancel_at_period_end": true,
    "canceled_at": 1760400000,
    "trial_start": null,
    "trial_end": null,
    "items": {"data": [{
      "id": "si_1",
      "price": {"id": "price_weekly"},
      "current_period_start": 1760400000,
      "current_period_end": 1761004800
    }]}
  }}
}`

func TestParseEnvelopeSubscription(t *testing.T) {
	evt, err := ParseEnvelope([]byte(subscriptionUpdatedPayload))
	require.NoError(t, err)

	assert.Equal(t, EventSubscriptionUpdated, evt.Type)
	assert.Equal(t, time.Unix(1760400000, 0).UTC(), evt.Created)
	require.NotNil(t, evt.Subscription)

	sub := evt.Subscription
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, "si_1", sub.ItemID)
	assert.Equal(t, "price_weekly", sub.PriceID)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Nil(t, sub.TrialEnd)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, int64(1761004800), sub.CurrentPeriodEnd.Unix())
	require.NotNil(t, sub.CanceledAt)
}

func TestParseEventLegacyPeriodFields(t *testing.T) {
	raw := []byte(`{"id":"sub_2","customer":{"id":"cus_9","object":"customer"},"status":"trialing",
		"current_period_start":100,"current_period_end":200,"trial_end":200,
		"items":{"data":[{"id":"si_2","price":{"id":"price_m"}}]}}`)

	evt, err := ParseEvent("evt_2", string(EventSubscriptionDeleted), 0, raw)
	require.NoError(t, err)

	assert.Equal(t, "cus_9", evt.Subscription.CustomerID)
	assert.Equal(t, int64(200), evt.Subscription.CurrentPeriodEnd.Unix())
	assert.Equal(t, int64(200), evt.Subscription.TrialEnd.Unix())
}

func TestParseEventCheckoutSession(t *testing.T) {
	raw := []byte(`{"id":"cs_1","customer":"cus_1","subscription":"sub_1",
		"metadata":{"subscription_record_id":"rec-1","product":"featured_listing"}}`)

	evt, err := ParseEvent("evt_3", string(EventCheckoutCompleted), 0, raw)
	require.NoError(t, err)

	require.NotNil(t, evt.Session)
	assert.Equal(t, "sub_1", evt.Session.SubscriptionID)
	assert.Equal(t, "rec-1", evt.Session.Metadata["subscription_record_id"])
}

func TestParseEventCheckoutSessionExpandedObjects(t *testing.T) {
	raw := []byte(`{"id":"cs_2","object":"checkout.session","url":"https://checkout.stripe.com/c/cs_2",
		"customer":{"id":"cus_2","object":"customer","email":"jane@x.com"},
		"subscription":{"id":"sub_2","object":"subscription","status":"active"}}`)

	evt, err := ParseEvent("evt_8", string(EventCheckoutCompleted), 0, raw)
	require.NoError(t, err)

	assert.Equal(t, "cus_2", evt.Session.CustomerID)
	assert.Equal(t, "sub_2", evt.Session.SubscriptionID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_2", evt.Session.URL)
	assert.Empty(t, evt.Session.Metadata)
}

func TestParseEventInvoiceSubscriptionLocations(t *testing.T) {
	legacy := []byte(`{"id":"in_1","customer":"cus_1","subscription":"sub_1","amount_due":1500,"currency":"usd"}`)
	evt, err := ParseEvent("evt_4", string(EventInvoiceUpcoming), 0, legacy)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", evt.Invoice.SubscriptionID)
	assert.Equal(t, int64(1500), evt.Invoice.AmountDue)

	nested := []byte(`{"customer":"cus_1","parent":{"subscription_details":{"subscription":"sub_7"}}}`)
	evt, err = ParseEvent("evt_5", string(EventInvoicePaymentFailed), 0, nested)
	require.NoError(t, err)
	assert.Equal(t, "sub_7", evt.Invoice.SubscriptionID)
}

func TestParseEventUnknownTypeKeepsEnvelope(t *testing.T) {
	evt, err := ParseEvent("evt_6", "charge.refunded", 0, []byte(`{"id":"ch_1"}`))
	require.NoError(t, err)
	assert.Equal(t, EventType("charge.refunded"), evt.Type)
	assert.Nil(t, evt.Session)
	assert.Nil(t, evt.Subscription)
	assert.Nil(t, evt.Invoice)
}

func TestParseEventRejectsMalformedObject(t *testing.T) {
	_, err := ParseEvent("evt_7", string(EventSubscriptionUpdated), 0, []byte(`{"id": 12`))
	assert.Error(t, err)
}

func TestStripeVerifyWebhookSignature(t *testing.T) {
	const secret = "whsec_test"
	g := &StripeGateway{}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(subscriptionUpdatedPayload),
		Secret:  secret,
	})

	evt, err := g.VerifyWebhookSignature(signed.Payload, signed.Header, secret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, "sub_1", evt.Subscription.ID)

	_, err = g.VerifyWebhookSignature(signed.Payload, signed.Header, "whsec_other")
	assert.Error(t, err)

	_, err = g.VerifyWebhookSignature(signed.Payload, "t=1,v1=deadbeef", secret)
	assert.Error(t, err)
}
