// Package entitlement derives the family-planner tier and enforces free-tier limits.
package entitlement

import (
	"context"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/metrics"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/rs/zerolog"
)

// ProStatuses are the gateway statuses that grant the pro tier. past_due keeps
// access while the processor retries payment.
var ProStatuses = []string{billing.StatusActive, billing.StatusTrialing, billing.StatusPastDue}

// AccountTier asks the gateway for the tier of the account owning email. An
// account is pro when any subscription in ProStatuses uses a planner price.
func AccountTier(ctx context.Context, gw billing.Gateway, email string, plannerPrices map[string]bool) (models.PlannerTier, error) {
	if email == "" {
		return models.PlannerFree, nil
	}
	customerID, found, err := gw.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", apperr.Gateway("entitlement.customer", err)
	}
	if !found {
		return models.PlannerFree, nil
	}
	subs, err := gw.ListSubscriptions(ctx, customerID, ProStatuses)
	if err != nil {
		return "", apperr.Gateway("entitlement.subscriptions", err)
	}
	for _, s := range subs {
		if plannerPrices[s.PriceID] {
			return models.PlannerPro, nil
		}
	}
	return models.PlannerFree, nil
}

// Counter counts an account's rows of a plan-limited resource.
type Counter interface {
	CountForAccount(ctx context.Context, resource models.PlannerResource, accountID string) (int, error)
}

// Guard gates plan-limited writes. Counting and inserting are not atomic, so two
// concurrent writes at the boundary can both pass.
type Guard struct {
	Gateway       billing.Gateway
	PlannerPrices map[string]bool
	Counter       Counter
	Limits        map[models.PlannerResource]int
	Logger        zerolog.Logger
}

// Tier returns the caller's current planner tier.
func (g *Guard) Tier(ctx context.Context, email string) (models.PlannerTier, error) {
	return AccountTier(ctx, g.Gateway, email, g.PlannerPrices)
}

// CheckLimit returns a *apperr.LimitExceededError when a free account already
// holds Limits[resource] rows. The gateway is only consulted at the boundary.
func (g *Guard) CheckLimit(ctx context.Context, accountID, email string, resource models.PlannerResource) error {
	limit, ok := g.Limits[resource]
	if !ok {
		return apperr.Configuration("no free-tier limit configured for %s", resource)
	}
	n, err := g.Counter.CountForAccount(ctx, resource, accountID)
	if err != nil {
		return err
	}
	if n < limit {
		return nil
	}

	tier, err := g.Tier(ctx, email)
	if err != nil {
		return err
	}
	if tier == models.PlannerPro {
		return nil
	}

	metrics.LimitRejections.WithLabelValues(string(resource)).Inc()
	g.Logger.Info().Str("account_id", accountID).Str("resource", string(resource)).
		Int("count", n).Int("limit", limit).Msg("free plan limit reached")
	return &apperr.LimitExceededError{Resource: string(resource), Limit: limit}
}

// Usage is one resource's count against its free-tier limit.
type Usage struct {
	Count int `json:"count"`
	Limit int `json:"limit,omitempty"`
}

// Plan summarizes an account's planner entitlement. Limits are omitted for pro.
type Plan struct {
	Tier  models.PlannerTier                `json:"tier"`
	Usage map[models.PlannerResource]*Usage `json:"usage"`
}

// Summary returns the caller's tier and per-resource usage.
func (g *Guard) Summary(ctx context.Context, accountID, email string) (*Plan, error) {
	tier, err := g.Tier(ctx, email)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Tier: tier, Usage: make(map[models.PlannerResource]*Usage, len(g.Limits))}
	for resource, limit := range g.Limits {
		n, err := g.Counter.CountForAccount(ctx, resource, accountID)
		if err != nil {
			return nil, err
		}
		u := &Usage{Count: n}
		if tier == models.PlannerFree {
			u.Limit = limit
		}
		plan.Usage[resource] = u
	}
	return plan, nil
}
