package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/database/dbtest"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/01moynul/familyhub-golang/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plannerPrices = map[string]bool{"price_planner_monthly": true, "price_planner_yearly": true}

func TestAccountTier(t *testing.T) {
	ctx := context.Background()
	gw := billing.NewMockGateway()
	gw.AddCustomer("cus_pro", "pro@x.com")
	gw.AddCustomer("cus_lapsed", "lapsed@x.com")
	gw.AddCustomer("cus_featured", "featured@x.com")
	gw.AddCustomer("cus_dunning", "dunning@x.com")
	gw.AddSubscription(billing.Subscription{ID: "sub_1", CustomerID: "cus_pro", Status: billing.StatusTrialing, PriceID: "price_planner_yearly"})
	gw.AddSubscription(billing.Subscription{ID: "sub_2", CustomerID: "cus_lapsed", Status: billing.StatusCanceled, PriceID: "price_planner_monthly"})
	gw.AddSubscription(billing.Subscription{ID: "sub_3", CustomerID: "cus_featured", Status: billing.StatusActive, PriceID: "price_weekly"})
	gw.AddSubscription(billing.Subscription{ID: "sub_4", CustomerID: "cus_dunning", Status: billing.StatusPastDue, PriceID: "price_planner_monthly"})

	tests := []struct {
		email string
		want  models.PlannerTier
	}{
		{"pro@x.com", models.PlannerPro},
		{"dunning@x.com", models.PlannerPro},
		{"lapsed@x.com", models.PlannerFree},
		{"featured@x.com", models.PlannerFree},
		{"nobody@x.com", models.PlannerFree},
		{"", models.PlannerFree},
	}
	for _, tt := range tests {
		got, err := AccountTier(ctx, gw, tt.email, plannerPrices)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.email)
	}
}

func TestAccountTierGatewayFailure(t *testing.T) {
	gw := billing.NewMockGateway()
	gw.FindCustomerByEmailErr = errors.New("timeout")

	_, err := AccountTier(context.Background(), gw, "pro@x.com", plannerPrices)
	assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))
}

func newGuard(t *testing.T) (*Guard, *store.PlannerStore, *billing.MockGateway) {
	planner := store.NewPlannerStore(dbtest.New(t))
	gw := billing.NewMockGateway()
	return &Guard{
		Gateway:       gw,
		PlannerPrices: plannerPrices,
		Counter:       planner,
		Limits: map[models.PlannerResource]int{
			models.ResourceSavedPrograms: 5,
			models.ResourceChildren:      2,
			models.ResourceAdults:        1,
		},
		Logger: zerolog.Nop(),
	}, planner, gw
}

func TestCheckLimitBoundary(t *testing.T) {
	ctx := context.Background()
	g, planner, _ := newGuard(t)

	require.NoError(t, g.CheckLimit(ctx, "acct-1", "free@x.com", models.ResourceChildren))
	_, err := planner.AddChild(ctx, "acct-1", "Ava", nil)
	require.NoError(t, err)
	require.NoError(t, g.CheckLimit(ctx, "acct-1", "free@x.com", models.ResourceChildren))
	_, err = planner.AddChild(ctx, "acct-1", "Ben", nil)
	require.NoError(t, err)

	err = g.CheckLimit(ctx, "acct-1", "free@x.com", models.ResourceChildren)
	var le *apperr.LimitExceededError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 2, le.Limit)
	assert.Equal(t, "children", le.Resource)
	assert.Equal(t, 403, apperr.HTTPStatus(err))

	// Limits are per account.
	assert.NoError(t, g.CheckLimit(ctx, "acct-2", "other@x.com", models.ResourceChildren))
}

func TestCheckLimitSkipsProAccounts(t *testing.T) {
	ctx := context.Background()
	g, planner, gw := newGuard(t)
	gw.AddCustomer("cus_pro", "pro@x.com")
	gw.AddSubscription(billing.Subscription{ID: "sub_1", CustomerID: "cus_pro", Status: billing.StatusActive, PriceID: "price_planner_monthly"})

	_, err := planner.AddAdult(ctx, "acct-pro", "Sam", nil)
	require.NoError(t, err)
	_, err = planner.AddAdult(ctx, "acct-pro", "Alex", nil)
	require.NoError(t, err)

	assert.NoError(t, g.CheckLimit(ctx, "acct-pro", "pro@x.com", models.ResourceAdults))
}

func TestCheckLimitOnlyAsksGatewayAtBoundary(t *testing.T) {
	ctx := context.Background()
	g, _, gw := newGuard(t)
	gw.FindCustomerByEmailErr = errors.New("gateway down")

	assert.NoError(t, g.CheckLimit(ctx, "acct-1", "free@x.com", models.ResourceSavedPrograms))
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(g.CheckLimit(ctx, "acct-1", "free@x.com", "pets")))
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	g, planner, _ := newGuard(t)
	_, err := planner.AddSavedProgram(ctx, "acct-1", "P1", nil)
	require.NoError(t, err)

	plan, err := g.Summary(ctx, "acct-1", "free@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.PlannerFree, plan.Tier)
	assert.Equal(t, &Usage{Count: 1, Limit: 5}, plan.Usage[models.ResourceSavedPrograms])
	assert.Equal(t, &Usage{Count: 0, Limit: 1}, plan.Usage[models.ResourceAdults])
}
