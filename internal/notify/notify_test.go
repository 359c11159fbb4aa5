package notify

import (
	"context"
	"testing"
	"time"

	"github.com/01moynul/familyhub-golang/internal/email"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(status models.SubscriptionStatus) *models.SubscriptionRecord {
	trialEnd := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)
	return &models.SubscriptionRecord{
		ContactName:  "Jane",
		ContactEmail: "jane@x.com",
		PlanType:     models.PlanWeekly,
		Status:       status,
		TrialEnd:     &trialEnd,
	}
}

func TestFeaturedWelcome(t *testing.T) {
	sender := &email.RecordingSender{}
	n := New(sender, "https://kids.example.com/")

	require.NoError(t, n.FeaturedWelcome(context.Background(), record(models.StatusTrialing), "New Studio"))
	require.NoError(t, n.FeaturedWelcome(context.Background(), record(models.StatusActive), "New Studio"))

	msgs := sender.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "jane@x.com", msgs[0].To)
	assert.Contains(t, msgs[0].Subject, "free trial")
	assert.Contains(t, msgs[0].Body, "October 21, 2026")
	assert.Contains(t, msgs[1].Subject, "featured listing")
	assert.Contains(t, msgs[1].Body, "weekly plan")
	assert.Contains(t, msgs[1].Body, "https://kids.example.com/account/subscriptions")
}

func TestUpcomingChargeWording(t *testing.T) {
	sender := &email.RecordingSender{}
	n := New(sender, "https://kids.example.com")
	at := time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)

	require.NoError(t, n.UpcomingCharge(context.Background(), record(models.StatusTrialing), 2900, "usd", &at))
	require.NoError(t, n.UpcomingCharge(context.Background(), record(models.StatusActive), 900, "cad", nil))

	msgs := sender.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Subject, "converts to a paid plan")
	assert.Contains(t, msgs[0].Body, "$29.00")
	assert.Contains(t, msgs[1].Subject, "renewal")
	assert.Contains(t, msgs[1].Body, "9.00 CAD")
}

func TestTrialEnding(t *testing.T) {
	sender := &email.RecordingSender{}
	n := New(sender, "https://kids.example.com")

	require.NoError(t, n.TrialEnding(context.Background(), record(models.StatusTrialing), nil))
	assert.Contains(t, sender.Messages()[0].Body, "in a few days")
}
