package subscriptions

import (
	"strings"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/config"
	"github.com/01moynul/familyhub-golang/internal/models"
)

// Catalog resolves plan tiers to gateway prices and builds the redirect URLs.
type Catalog struct {
	FeaturedPrices map[models.PlanType]string
	PlannerPrices  map[models.PlannerInterval]string
	TrialDays      int64
	AppURL         string
}

// CatalogFromConfig copies the pricing settings out of cfg.
func CatalogFromConfig(cfg *config.Config) Catalog {
	return Catalog{
		FeaturedPrices: cfg.FeaturedPrices,
		PlannerPrices:  cfg.PlannerPrices,
		TrialDays:      cfg.FeaturedTrialDays,
		AppURL:         strings.TrimRight(cfg.AppURL, "/"),
	}
}

// FeaturedPrice returns the price id for a featured tier.
func (c Catalog) FeaturedPrice(plan models.PlanType) (string, error) {
	id, ok := c.FeaturedPrices[plan]
	if !ok || id == "" {
		return "", apperr.Configuration("no price configured for the %s featured plan", plan)
	}
	return id, nil
}

// PlannerPrice returns the price id for a planner interval.
func (c Catalog) PlannerPrice(interval models.PlannerInterval) (string, error) {
	id, ok := c.PlannerPrices[interval]
	if !ok || id == "" {
		return "", apperr.Configuration("no price configured for the %s planner plan", interval)
	}
	return id, nil
}

// PlannerIntervalFor reports which planner interval a price id belongs to.
func (c Catalog) PlannerIntervalFor(priceID string) (models.PlannerInterval, bool) {
	for interval, id := range c.PlannerPrices {
		if id != "" && id == priceID {
			return interval, true
		}
	}
	return "", false
}

// FeaturedPlanFor reports which featured tier a price id belongs to.
func (c Catalog) FeaturedPlanFor(priceID string) (models.PlanType, bool) {
	for plan, id := range c.FeaturedPrices {
		if id != "" && id == priceID {
			return plan, true
		}
	}
	return "", false
}

func (c Catalog) featuredSuccessURL() string {
	return c.AppURL + "/featured/success?session_id={CHECKOUT_SESSION_ID}"
}

func (c Catalog) featuredCancelURL() string {
	return c.AppURL + "/featured/signup?canceled=true"
}

func (c Catalog) plannerSuccessURL() string {
	return c.AppURL + "/planner/upgrade/success?session_id={CHECKOUT_SESSION_ID}"
}

func (c Catalog) plannerCancelURL() string {
	return c.AppURL + "/planner/upgrade?canceled=true"
}

// FeaturedReturnURL is where the billing portal sends featured-listing customers back to.
func (c Catalog) FeaturedReturnURL() string {
	return c.AppURL + "/account/subscriptions"
}

// PlannerReturnURL is where the billing portal sends planner customers back to.
func (c Catalog) PlannerReturnURL() string {
	return c.AppURL + "/planner/settings"
}
